package service

import (
	"encoding/json"
	"fmt"
	"strings"

	maindomain "github.com/lbatal/storefront-assistant-go/internal/domain"
)

// ============================================================
// Textos fixos em Darija
// ============================================================

// WelcomeText é a resposta da primeira mensagem de uma conversa.
// O modelo não é chamado nesse caso.
func WelcomeText(store maindomain.Store) string {
	return fmt.Sprintf(
		"Salam w mar7ba bik f %s! Ana l'assistant dyal l7anout. "+
			"3andna téléphones, écouteurs w chargeurs f %s. "+
			"Goul lia chno kat9elleb 3lih w n3awnek.",
		store.Name, joinLocations(store.Locations),
	)
}

// FallbackText substitui a resposta do modelo quando o gateway falha.
// Sempre repete o telefone e o email da loja.
func FallbackText(store maindomain.Store) string {
	return fmt.Sprintf(
		"Sma7 lina, kayn mochkil sghir f système daba. "+
			"3ayet lina 3la %s wla sift lina email l %s, w ghadi n3awnouk b kol farha.",
		store.Phone, store.Email,
	)
}

// ============================================================
// System prompt
// ============================================================

// BuildSystemPrompt monta o prompt de sistema: persona, dados da loja e o
// catálogo inteiro em JSON.
func BuildSystemPrompt(store maindomain.Store, products []maindomain.Product) (string, error) {
	catalogJSON, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal catalog for prompt: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are the sales assistant of %s", store.Name)
	if store.MainName != "" {
		fmt.Fprintf(&b, " (%s)", store.MainName)
	}
	b.WriteString(", a phone and accessories shop in Morocco.\n\n")

	b.WriteString("RULES:\n")
	b.WriteString("- Always answer in Moroccan Darija written in Latin script (3, 7, 9 for the Arabic sounds). Never switch to another language, even if the customer does.\n")
	b.WriteString("- Be short, warm and concrete: two or three sentences.\n")
	b.WriteString("- Only talk about products from the catalog below. Never invent products, prices or stock.\n")
	b.WriteString("- Prices are in the catalog currency. Mention stock only when asked.\n")
	b.WriteString("- When the customer wants to buy, tell them to fill the order form shown on the page.\n\n")

	b.WriteString("STORE:\n")
	fmt.Fprintf(&b, "- Name: %s\n", store.Name)
	fmt.Fprintf(&b, "- Locations: %s", joinLocations(store.Locations))
	if store.City != "" {
		fmt.Fprintf(&b, " (%s)", store.City)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- Phone: %s\n", store.Phone)
	fmt.Fprintf(&b, "- Email: %s\n", store.Email)
	fmt.Fprintf(&b, "- Hours: %s\n\n", store.Hours)

	b.WriteString("CATALOG (JSON):\n")
	b.Write(catalogJSON)
	b.WriteString("\n")

	return b.String(), nil
}

func joinLocations(locations []string) string {
	switch len(locations) {
	case 0:
		return ""
	case 1:
		return locations[0]
	default:
		return strings.Join(locations[:len(locations)-1], ", ") + " w " + locations[len(locations)-1]
	}
}
