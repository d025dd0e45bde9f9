package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"text/template"
	"time"
)

// Dispatcher envia e-mails transacionais a partir de um template e variáveis.
type Dispatcher interface {
	Send(ctx context.Context, tipo, destinatario string, vars map[string]string) error
}

// TemplateStore fornece templates por tipo.
type TemplateStore interface {
	GetTemplate(ctx context.Context, tipo string) (Template, error)
}

// RelayDispatcher renderiza o template e entrega via relay HTTP de e-mail.
// O transporte SMTP em si fica no relay, fora deste serviço.
type RelayDispatcher struct {
	relayURL string
	from     string
	store    TemplateStore
	client   *http.Client
}

// NewRelayDispatcher devolve nil quando não há relay configurado; os chamadores
// tratam dispatcher nil como envio desligado.
func NewRelayDispatcher(relayURL, from string, store TemplateStore) *RelayDispatcher {
	if strings.TrimSpace(relayURL) == "" {
		return nil
	}
	return &RelayDispatcher{
		relayURL: relayURL,
		from:     from,
		store:    store,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Send renderiza assunto e corpo com as variáveis e posta no relay.
func (d *RelayDispatcher) Send(ctx context.Context, tipo, destinatario string, vars map[string]string) error {
	if d == nil || d.relayURL == "" {
		return errors.New("notify: relay não configurado")
	}
	if strings.TrimSpace(destinatario) == "" {
		return errors.New("notify: destinatário obrigatório")
	}

	tpl, err := d.store.GetTemplate(ctx, tipo)
	if err != nil {
		return fmt.Errorf("template %s: %w", tipo, err)
	}

	assunto, err := Render(tpl.Assunto, vars)
	if err != nil {
		return fmt.Errorf("assunto %s: %w", tipo, err)
	}
	corpo, err := Render(tpl.Corpo, vars)
	if err != nil {
		return fmt.Errorf("corpo %s: %w", tipo, err)
	}

	payload := map[string]any{
		"from":    d.from,
		"to":      destinatario,
		"subject": assunto,
		"body":    corpo,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.relayURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: relay respondeu %d", resp.StatusCode)
	}
	return nil
}

// Render aplica as variáveis sobre o texto do template ({{.nome}}, {{.data}} etc).
func Render(texto string, vars map[string]string) (string, error) {
	tpl, err := template.New("email").Option("missingkey=zero").Parse(texto)
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	if err := tpl.Execute(&out, vars); err != nil {
		return "", err
	}
	return out.String(), nil
}
