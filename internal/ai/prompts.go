package ai

import (
	"fmt"
	"strings"

	"github.com/urbanalert/pkg/models"
)

// Prompt builders for the four gateway operations. Structured prompts spell
// out the exact JSON shape expected back; the llm layer handles fenced or
// slightly malformed output.

func greetingPrompt(city string) string {
	return fmt.Sprintf(`Você é o assistente virtual da Defesa Civil de %s.
Escreva uma saudação curta e acolhedora (no máximo duas frases) convidando o
cidadão a relatar uma ocorrência de risco na cidade, como alagamentos,
deslizamentos ou problemas estruturais. Responda apenas com a saudação, sem
formatação.`, city)
}

func analyzePrompt(description string, category models.Category) string {
	return fmt.Sprintf(`Você é um analista da Defesa Civil avaliando o relato de um cidadão.

Categoria selecionada: %s
Relato: %q

Responda SOMENTE com JSON neste formato exato:
{"response": "<mensagem empática e curta para o cidadão, confirmando o registro e orientando sobre segurança>", "severity": <inteiro de 1 a 5 indicando a gravidade do risco>}`, category, description)
}

func locationPrompt(city, text string) string {
	return fmt.Sprintf(`Um cidadão de %s descreveu onde ocorreu um problema urbano:
%q

Estime o bairro e as coordenadas aproximadas dentro de %s.

Responda SOMENTE com JSON neste formato exato:
{"neighborhood": "<nome do bairro>", "lat": <latitude>, "lng": <longitude>, "confirmation": "<frase curta confirmando o local identificado>"}`, city, text, city)
}

func inferCategoryPrompt(text string) string {
	names := make([]string, 0, len(models.Categories()))
	for _, c := range models.Categories() {
		names = append(names, string(c))
	}

	return fmt.Sprintf(`Classifique o relato de um cidadão em uma das categorias fixas abaixo:
%s

Relato: %q

Responda SOMENTE com JSON neste formato exato:
{"category": "<uma das categorias acima, copiada literalmente, ou \"\" se nenhuma servir>"}`, strings.Join(names, "\n"), text)
}
