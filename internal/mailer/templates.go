package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "two_factor_code"}}<div style="font-family: Arial, sans-serif; max-width: 480px; margin: 0 auto;">
<h2>Código de verificação</h2>
<p>Use o código abaixo para concluir a verificação em duas etapas:</p>
<p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{.Code}}</p>
<p>O código expira em {{.Minutes}} minutos. Se você não solicitou, ignore este email.</p>
</div>{{end}}

{{define "password_reset"}}<div style="font-family: Arial, sans-serif; max-width: 480px; margin: 0 auto;">
<h2>Redefinição de senha</h2>
<p>Recebemos um pedido para redefinir a sua senha. Clique no link abaixo:</p>
<p><a href="{{.Link}}">Redefinir senha</a></p>
<p>O link expira em 1 hora. Se você não solicitou, ignore este email.</p>
</div>{{end}}

{{define "test"}}<div style="font-family: Arial, sans-serif; max-width: 480px; margin: 0 auto;">
<h2>Teste de envio</h2>
<p>Se você recebeu esta mensagem, o servidor de email está configurado corretamente.</p>
</div>{{end}}
`))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func TwoFactorCode(to, code string, minutes int) (Message, error) {
	html, err := render("two_factor_code", struct {
		Code    string
		Minutes int
	}{code, minutes})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Seu código de verificação", HTML: html}, nil
}

func PasswordReset(to, link string) (Message, error) {
	html, err := render("password_reset", struct{ Link string }{link})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Redefinição de senha", HTML: html}, nil
}

func TestMessage(to string) (Message, error) {
	html, err := render("test", nil)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Teste de email", HTML: html}, nil
}
