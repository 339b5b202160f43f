// Package archetype holds the fixed catalog of behavioral archetypes a
// submitter's reaction is classified into.
package archetype

// Ideal is the archetype every coaching tip steers the submitter towards.
const Ideal = "O Guerreiro"

// Archetype is one catalog entry.
type Archetype struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var catalog = []Archetype{
	{"O Medroso", "Recua diante da pressão, evita confronto direto, busca validação externa para agir, teme a rejeição ou o fracasso."},
	{"O Sabotador", "Autossabota na hora de fechar, dá desconto sem necessidade ou antes da hora, tem medo do sucesso e de não ser merecedor."},
	{"O Executor", "É eficiente e busca resultados, mas impaciente, tende a perder o emocional rápido, impõe soluções sem ouvir."},
	{"O Diplomata", "Tenta agradar demais e perde poder de negociação, evita o atrito, busca harmonia a todo custo, não é assertivo."},
	{"O Sedutor", "Depende da lábia, evita estrutura e preparação, foca na persuasão vazia, sem profundidade, apenas superficial."},
	{"O Desfocado", "Não ouve o cliente, fala demais, perde o fio da meada, falta de presença e de atenção plena."},
	{"O Visionário", "Promete além da conta, foca em um futuro distante sem lidar com a objeção presente ou a realidade do cliente."},
	{"O Guerreiro", "Perfil ideal. Foco, resiliência, equilíbrio entre técnica e emoção, busca a solução real para o cliente, não o ego, enfrenta desafios com coragem."},
}

// All returns the catalog in its fixed order.
func All() []Archetype {
	out := make([]Archetype, len(catalog))
	copy(out, catalog)
	return out
}

// Names returns the archetype labels in catalog order.
func Names() []string {
	names := make([]string, len(catalog))
	for i, a := range catalog {
		names[i] = a.Name
	}
	return names
}

// Lookup finds an archetype by its exact label.
func Lookup(name string) (Archetype, bool) {
	for _, a := range catalog {
		if a.Name == name {
			return a, true
		}
	}
	return Archetype{}, false
}

// IsKnown reports whether name is one of the catalog labels.
func IsKnown(name string) bool {
	_, ok := Lookup(name)
	return ok
}
