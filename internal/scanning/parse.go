package scanning

import (
	"strings"
)

// transcriptionPrompt asks a vision model for a faithful transcription
const transcriptionPrompt = `Transcris intégralement le texte de ce rapport d'expertise automobile.

Règles:
- Recopie le texte tel qu'il apparaît, ligne par ligne, sans résumer ni traduire.
- Conserve les montants exactement (virgule décimale, espaces de milliers, symbole €).
- Pour les tableaux (pièces, main d'oeuvre, ingrédients, totaux), écris une ligne par rangée
  et sépare les colonnes par au moins deux espaces.
- Conserve les libellés comme "Total HT", "TVA", "Total TTC", "Taux horaire", "Remise".
- N'ajoute aucun commentaire, aucune balise Markdown et aucun JSON.`

// cleanTranscription strips Markdown fences and chat preambles from a model
// answer
func cleanTranscription(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		// Drop the opening fence with its language tag
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[i+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
