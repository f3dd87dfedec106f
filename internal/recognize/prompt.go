package recognize

import "fmt"

const cardAnalysisPrompt = `Analyze this Pokemon card image and extract the following information:

%s

Please extract:
1. Card name
2. Card number (e.g., "12/113")
3. Set name and symbol
4. Rarity (Common, Uncommon, Rare, Holo Rare, etc.)
5. Card type (Pokemon, Trainer, Energy)
6. For Pokemon cards:
   - HP
   - Type(s)
   - Evolution stage
   - Attacks with damage
   - Weakness/Resistance
   - Retreat cost
7. Any special features (First Edition, Shadowless, etc.)
8. Card condition observations (if visible)

Return the information as a valid JSON object only, with no additional text or markdown. Use the keys "name", "number", "set", "rarity" and "type" for the identity fields.`

// buildPrompt folds an optional image-matching hint into the analysis
// prompt.
func buildPrompt(hint string) string {
	context := ""
	if hint != "" {
		context = fmt.Sprintf("This appears to be %s based on image matching.", hint)
	}
	return fmt.Sprintf(cardAnalysisPrompt, context)
}
