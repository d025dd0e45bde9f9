package acesso

import (
	"crypto/rand"
	"fmt"
	"io"
)

const (
	codigoAlfabeto = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codigoTamanho  = 8
)

// GerarCodigo produz um código de 8 caracteres (A-Z, 0-9) para compartilhamento
// manual. A amostragem usa rejeição para manter cada símbolo uniforme. Com rnd
// nil a fonte é crypto/rand. A unicidade é garantida na escrita, não aqui.
func GerarCodigo(rnd io.Reader) (string, error) {
	if rnd == nil {
		rnd = rand.Reader
	}

	// maior múltiplo de 36 que cabe em um byte
	const limite = byte(252)

	out := make([]byte, 0, codigoTamanho)
	buf := make([]byte, codigoTamanho*2)
	for len(out) < codigoTamanho {
		if _, err := io.ReadFull(rnd, buf); err != nil {
			return "", fmt.Errorf("gerar código: %w", err)
		}
		for _, b := range buf {
			if b >= limite {
				continue
			}
			out = append(out, codigoAlfabeto[int(b)%len(codigoAlfabeto)])
			if len(out) == codigoTamanho {
				break
			}
		}
	}

	return string(out), nil
}
