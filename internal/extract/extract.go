// Package extract reads the employee name and exam date out of an ASO
// (Atestado de Saúde Ocupacional) by forwarding the PDF to a multimodal model.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrDisabled means no credential was configured; AI naming is off.
	ErrDisabled = errors.New("ai extraction disabled: no credential configured")
	// ErrMalformedResponse means the model answered with something that is not the expected JSON object.
	ErrMalformedResponse = errors.New("malformed extraction response")
	// ErrEmptyResponse means the model returned no text at all.
	ErrEmptyResponse = errors.New("empty extraction response")
)

// Fields is what the model found on the certificate. An empty string means
// the value was absent.
type Fields struct {
	EmployeeName string
	ExamDate     string
}

// Extractor is the external extraction capability.
type Extractor interface {
	Extract(ctx context.Context, pdf []byte) (Fields, error)
}

// ExtractorFunc adapts a plain function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, pdf []byte) (Fields, error)

func (f ExtractorFunc) Extract(ctx context.Context, pdf []byte) (Fields, error) {
	return f(ctx, pdf)
}

// UserPrompt asks for a two-field JSON object. The certificates are Brazilian,
// so the instruction and the keys stay in Portuguese.
const UserPrompt = `Analise esta imagem de um Atestado de Saúde Ocupacional (ASO) e extraia as seguintes informações:
1. Nome completo do funcionário
2. Data do exame

Retorne APENAS um JSON no seguinte formato:
{
    "nome": "NOME COMPLETO DO FUNCIONÁRIO",
    "data": "DD/MM/YYYY"
}

Se não encontrar alguma informação, use null como valor.`

// SystemPrompt frames the model as a strict form reader.
const SystemPrompt = "You read scanned occupational-health certificates and answer with a single JSON object. Never add commentary."

type response struct {
	Nome *string `json:"nome"`
	Data *string `json:"data"`
}

var codeFence = regexp.MustCompile("```(?:json|JSON)?\\n?|\\n?```")

// ParseResponse strips code-fence markup and decodes the model answer. It
// never returns a partially decoded payload: either the JSON object is valid
// or the error wraps ErrMalformedResponse.
func ParseResponse(text string) (Fields, error) {
	cleaned := strings.TrimSpace(codeFence.ReplaceAllString(text, ""))
	if cleaned == "" {
		return Fields{}, ErrEmptyResponse
	}

	dec := json.NewDecoder(strings.NewReader(cleaned))
	var r response
	if err := dec.Decode(&r); err != nil {
		return Fields{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if dec.More() {
		return Fields{}, fmt.Errorf("%w: trailing data after JSON object", ErrMalformedResponse)
	}

	var f Fields
	if r.Nome != nil {
		f.EmployeeName = strings.TrimSpace(*r.Nome)
	}
	if r.Data != nil {
		f.ExamDate = strings.TrimSpace(*r.Data)
	}
	return f, nil
}
