package interpret

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wonny/crmgeek/backend/internal/contracts"
)

const systemPrompt = "Eres un experto en modelos de machine learning. Devuelve solo JSON válido, sin texto adicional."

const userPromptTemplate = `
Tienes los siguientes resultados de modelos de predicción de ventas:

%s

Evalúa cada modelo considerando sus métricas (MAE, MAPE y R²).
Clasifica la precisión como "Alta", "Media" o "Baja", y proporciona una breve recomendación.

Devuelve solo un JSON con esta estructura:
[
  {
    "modelo": "Nombre del modelo",
    "precision": "Alta | Media | Baja",
    "recomendacion": "Texto breve"
  }
]
`

// BuildPrompt renders the user message for a batch of model metrics
func BuildPrompt(metrics []contracts.ModelMetricsInput) (string, error) {
	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode metrics: %w", err)
	}
	return fmt.Sprintf(userPromptTemplate, data), nil
}

// CleanResponse strips markdown code fences around a JSON answer
func CleanResponse(content string) string {
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```JSON", "")
	content = strings.ReplaceAll(content, "```", "")
	return strings.TrimSpace(content)
}

type entry struct {
	Modelo        string `json:"modelo"`
	Precision     string `json:"precision"`
	Recomendacion string `json:"recomendacion"`
}

// Decode parses the cleaned answer. The answer must be a JSON array;
// individual entries that do not fit the expected shape are skipped.
func Decode(content string) ([]contracts.Interpretation, int, error) {
	cleaned := CleanResponse(content)
	if cleaned == "" {
		return nil, 0, fmt.Errorf("empty answer")
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, 0, fmt.Errorf("answer is not a JSON array: %w", err)
	}

	out := make([]contracts.Interpretation, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		var e entry
		if err := json.Unmarshal(r, &e); err != nil || strings.TrimSpace(e.Modelo) == "" {
			skipped++
			continue
		}
		out = append(out, contracts.Interpretation{
			ModelID:        e.Modelo,
			Precision:      e.Precision,
			Recommendation: e.Recomendacion,
		})
	}
	return out, skipped, nil
}
