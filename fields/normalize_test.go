package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"Endereço", "endereco"},
		{"ENDERECO", "endereco"},
		{"endereco", "endereco"},
		{"Tipo-de-Documento", "tipodedocumento"},
		{"  Nome da Parte ", "nomedaparte"},
		{"Autoridade Coatora (Habeas Corpus)", "autoridadecoatorahabeascorpus"},
		{"Ação nº 2", "acaon2"},
		{"", ""},
		{42, "42"},
		{nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %v", tt.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, s := range []string{"Endereço Residencial", "CPF/CNPJ", "Valor da Causa (R$)", "Órgão Julgador", "ßüñ", "日本"} {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "input %q", s)
	}
}

func TestFoldKeepsPunctuation(t *testing.T) {
	assert.Equal(t, "pesquisa de jurisprudencia!", Fold("Pesquisa de Jurisprudência!"))
}

func TestNormalizeData(t *testing.T) {
	raw := map[string]any{
		"Cliente Nome": "Ana",
		"Valor Causa":  500,
		"Observação":   nil,
	}
	data := NormalizeData(raw)

	assert.Equal(t, "Ana", data["clientenome"])
	assert.Equal(t, "500", data["valorcausa"])
	assert.Equal(t, "", data["observacao"])
	assert.Equal(t, map[string]bool{"clientenome": true, "valorcausa": true}, data.RelevantKeys())
}

func TestNormalizeDataCollisionIsDeterministic(t *testing.T) {
	raw := map[string]any{
		"nome":  "",
		"Nome":  "Segundo",
		"NOME!": "Primeiro",
	}
	for i := 0; i < 20; i++ {
		// "NOME!" sorts before "Nome", both non-blank
		assert.Equal(t, "Primeiro", NormalizeData(raw)["nome"])
	}
}
