package evaluation

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var criterionNames = map[string]string{
	"fraseologia_explica_motivo": "Explicação do Motivo",
	"seguranca_info_corretas":    "Confirmações de Segurança",
	"cordialidade_respeito":      "Cordialidade e Respeito",
	"empatia_genuina":            "Empatia com Cliente",
	"escuta_sem_interromper":     "Escuta Ativa",
	"clareza_direta":             "Clareza na Comunicação",
	"comunicacao_tom_adequado":   "Tom de Voz Adequado",
	"oferta_valores_corretos":    "Apresentação de Valores",
	"confirmacao_aceite":         "Confirmação de Aceitação",
	"saudacao_padrao":            "Saudação Padrão",
	"identificacao_completa":     "Identificação Completa",
	"uso_script_padrao":          "Uso de Script",
	"finalizacao_adequada":       "Finalização Adequada",
	"solucao_duvidas":            "Esclarecimento de Dúvidas",
	"tempo_medio_atendimento":    "Tempo de Atendimento",
	"gestao_objecoes":            "Gestão de Objeções",
	"captura_dados":              "Captura de Dados",
	"conhecimento_produto":       "Conhecimento do Produto",
	"persuasao_efetiva":          "Persuasão Efetiva",
}

// DisplayName turns a technical criterion key into a readable label. Known
// keys use the curated table; anything else has underscores replaced with
// spaces and each word title-cased.
func DisplayName(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if name, ok := criterionNames[key]; ok {
		return name
	}
	if !strings.Contains(key, "_") && strings.ContainsAny(key, " ") {
		return key
	}
	return cases.Title(language.BrazilianPortuguese).String(strings.ReplaceAll(strings.ToLower(key), "_", " "))
}
