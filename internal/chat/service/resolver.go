// Package service (resolver.go) implementa o Product Resolver.
//
// ============================================================
// ARQUITETURA: Cascata de regras (first match wins)
// ============================================================
//
// O Resolver recebe a mensagem crua do cliente e devolve os produtos do
// catálogo relevantes para ela. Cada regra é um valor independente
// (nome + função de match), testável sozinha. A ordem da lista É a
// prioridade: "mostra tudo" ganha de lookup específico, que ganha de
// menção vaga a uma categoria.
//
// Cascata padrão:
//  1. catch_all        - "kol chi", "ga3 les produits", "all products" → catálogo inteiro
//  2. category_bulk    - "kol les phones", "ga3 les chargeurs"         → categoria inteira
//  3. exact_name       - "iphone 12"                                   → um produto
//  4. keyword          - keyword com mais de 4 caracteres              → um produto
//  5. category_mention - "téléphone", "airpods", "chargeur"            → categoria inteira
//  6. none             - nada
//
// Matching por substring (sem tokenização): o texto é Darija em alfabeto
// latino misturado com francês e inglês, e fronteira de palavra não é confiável.
package service

import (
	"strings"
	"unicode/utf8"

	"github.com/lbatal/storefront-assistant-go/internal/catalog"
	maindomain "github.com/lbatal/storefront-assistant-go/internal/domain"
)

// Nomes das regras (também usados como label de métrica).
const (
	RuleCatchAll        = "catch_all"
	RuleCategoryBulk    = "category_bulk"
	RuleExactName       = "exact_name"
	RuleKeyword         = "keyword"
	RuleCategoryMention = "category_mention"
	RuleNone            = "none"
)

// MinKeywordLength: keywords com até 4 caracteres ("pro", "buds", "anc")
// nunca disparam a regra keyword.
const MinKeywordLength = 4

// ============================================================
// Rule: uma etapa da cascata
// ============================================================

// Rule é uma regra da cascata. Match recebe a mensagem já em minúsculas
// e devolve (produtos, true) quando a regra se aplica.
type Rule struct {
	Name  string
	Match func(lower string) ([]maindomain.Product, bool)
}

// CategoryPhrases associa uma categoria às frases que a disparam.
type CategoryPhrases struct {
	Category string
	Phrases  []string
}

// Resolution é o resultado do Resolver. Products nunca é nil.
type Resolution struct {
	Rule     string
	Products []maindomain.Product
}

// Empty indica que nenhum produto é relevante.
func (r Resolution) Empty() bool {
	return len(r.Products) == 0
}

// ============================================================
// Frases padrão (Darija / francês / inglês)
// ============================================================

// DefaultCatchAllPhrases são os pedidos de "mostra tudo que vocês têm".
var DefaultCatchAllPhrases = []string{
	"kol chi", "kollchi", "kolchi li 3andkom",
	"ga3 les produits", "kol les produits", "ga3 chi",
	"ga3ma 3andkom", "ga3 li 3andkom", "ch7al mn produit 3andkom",
	"bghit nshoof kolchi", "ta9adar twarini kolchi", "bghit nchouf kol wa7ad",
	"chno li 3andkom",
	"all products", "tout les produits", "tous les produits",
}

// DefaultCategoryBulkPhrases são os pedidos de "todos os itens da categoria X",
// checados nesta ordem.
var DefaultCategoryBulkPhrases = []CategoryPhrases{
	{Category: maindomain.CategoryPhone, Phrases: []string{
		"kol les phones", "ga3 les téléphones", "ga3 les phones", "kol les iphone", "ga3 les iphones",
	}},
	{Category: maindomain.CategoryEarbuds, Phrases: []string{
		"kol les airpods", "ga3 les écouteurs", "ga3 les earbuds",
	}},
	{Category: maindomain.CategoryCharger, Phrases: []string{
		"kol les chargeurs", "ga3 les chargers", "ga3 les chargeurs",
	}},
}

// DefaultCategorySynonyms são as menções simples a cada categoria,
// na ordem fixa [phone, earbuds, charger].
var DefaultCategorySynonyms = []CategoryPhrases{
	{Category: maindomain.CategoryPhone, Phrases: []string{"phone", "téléphone", "telephone"}},
	{Category: maindomain.CategoryEarbuds, Phrases: []string{"earbuds", "écouteur", "airpods"}},
	{Category: maindomain.CategoryCharger, Phrases: []string{"charger", "chargeur"}},
}

// ============================================================
// Construtores das regras
// ============================================================

// CatchAllRule devolve o catálogo inteiro quando alguma frase aparece.
func CatchAllRule(cat *catalog.Catalog, phrases []string) Rule {
	lowered := lowerAll(phrases)
	return Rule{
		Name: RuleCatchAll,
		Match: func(lower string) ([]maindomain.Product, bool) {
			if containsAny(lower, lowered) {
				return cat.Products(), true
			}
			return nil, false
		},
	}
}

// CategoryBulkRule devolve a categoria do primeiro grupo cuja frase aparece.
func CategoryBulkRule(cat *catalog.Catalog, groups []CategoryPhrases) Rule {
	return categoryRule(RuleCategoryBulk, cat, groups)
}

// CategoryMentionRule devolve a categoria do primeiro sinônimo mencionado.
func CategoryMentionRule(cat *catalog.Catalog, synonyms []CategoryPhrases) Rule {
	return categoryRule(RuleCategoryMention, cat, synonyms)
}

// ExactNameRule devolve o primeiro produto (ordem do catálogo) cujo nome
// completo aparece na mensagem.
func ExactNameRule(cat *catalog.Catalog) Rule {
	products := cat.Products()
	names := make([]string, len(products))
	for i, p := range products {
		names[i] = strings.ToLower(p.Name)
	}
	return Rule{
		Name: RuleExactName,
		Match: func(lower string) ([]maindomain.Product, bool) {
			for i, name := range names {
				if name != "" && strings.Contains(lower, name) {
					return []maindomain.Product{products[i]}, true
				}
			}
			return nil, false
		},
	}
}

// KeywordRule devolve o primeiro produto (ordem do catálogo) com uma keyword
// de mais de minLength caracteres contida na mensagem.
func KeywordRule(cat *catalog.Catalog, minLength int) Rule {
	products := cat.Products()
	keywords := make([][]string, len(products))
	for i, p := range products {
		for _, kw := range p.Keywords {
			kw = strings.ToLower(kw)
			if utf8.RuneCountInString(kw) > minLength {
				keywords[i] = append(keywords[i], kw)
			}
		}
	}
	return Rule{
		Name: RuleKeyword,
		Match: func(lower string) ([]maindomain.Product, bool) {
			for i, kws := range keywords {
				if containsAny(lower, kws) {
					return []maindomain.Product{products[i]}, true
				}
			}
			return nil, false
		},
	}
}

func categoryRule(name string, cat *catalog.Catalog, groups []CategoryPhrases) Rule {
	type group struct {
		category string
		phrases  []string
	}
	lowered := make([]group, len(groups))
	for i, g := range groups {
		lowered[i] = group{category: g.Category, phrases: lowerAll(g.Phrases)}
	}
	return Rule{
		Name: name,
		Match: func(lower string) ([]maindomain.Product, bool) {
			for _, g := range lowered {
				if containsAny(lower, g.phrases) {
					return cat.ByCategory(g.category), true
				}
			}
			return nil, false
		},
	}
}

// DefaultRules monta a cascata padrão sobre o catálogo.
func DefaultRules(cat *catalog.Catalog) []Rule {
	return []Rule{
		CatchAllRule(cat, DefaultCatchAllPhrases),
		CategoryBulkRule(cat, DefaultCategoryBulkPhrases),
		ExactNameRule(cat),
		KeywordRule(cat, MinKeywordLength),
		CategoryMentionRule(cat, DefaultCategorySynonyms),
	}
}

// ============================================================
// Resolver
// ============================================================

// Resolver aplica a cascata de regras. É imutável depois de criado e seguro
// para uso concorrente.
type Resolver struct {
	rules []Rule
}

// NewResolver cria o Resolver com as regras dadas, na ordem dada.
func NewResolver(rules ...Rule) *Resolver {
	return &Resolver{rules: rules}
}

// Resolve devolve os produtos relevantes para a mensagem e a regra que ganhou.
func (r *Resolver) Resolve(message string) Resolution {
	lower := strings.ToLower(message)
	for _, rule := range r.rules {
		if products, ok := rule.Match(lower); ok {
			if products == nil {
				products = []maindomain.Product{}
			}
			return Resolution{Rule: rule.Name, Products: products}
		}
	}
	return Resolution{Rule: RuleNone, Products: []maindomain.Product{}}
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
