// Package i18n translates message codes for the web UI.
// English is the default language; Portuguese is the second supported one.
package i18n

import (
	"context"
	"strings"
)

const DefaultLang = "en"

var messages = map[string]map[string]string{
	"en": {
		// validation codes
		"required":                "Required",
		"too_long":                "Too long",
		"too_short":               "Too short",
		"invalid":                 "Invalid value",
		"invalid_email":           "Enter a valid email address",
		"invalid_url":             "Enter a valid URL",
		"invalid_choice":          "Select a valid choice",
		"invalid_date":            "Enter a valid date (YYYY-MM-DD)",
		"invalid_number":          "Enter a number",
		"mismatch":                "The two values do not match",
		"must_not_be_negative":    "Must not be negative",
		"too_many_decimal_places": "At most 2 decimal places",
		"out_of_range":            "Out of range",
		"already_exists":          "Already exists",
		"not_allowed":             "Not allowed",
		"append_only":             "Existing notes cannot be changed, only added to",
		"cannot_delete_self":      "You cannot delete your own account",

		// lead statuses
		"status.new":      "New",
		"status.contact":  "Contacted",
		"status.proposal": "Proposal",
		"status.won":      "Won",
		"status.lost":     "Lost",

		// interaction types
		"type.call":    "Call",
		"type.email":   "Email",
		"type.meeting": "Meeting",
		"type.note":    "Note",

		// flash messages
		"flash.client_created":      "Client created.",
		"flash.client_updated":      "Client updated.",
		"flash.client_deleted":      "Client deleted.",
		"flash.lead_created":        "Lead created.",
		"flash.lead_updated":        "Lead updated.",
		"flash.lead_deleted":        "Lead deleted.",
		"flash.lead_not_found":      "Lead not found.",
		"flash.lead_forbidden":      "You cannot edit this lead.",
		"flash.invalid_status":      "Invalid status.",
		"flash.pipeline_updated":    "Pipeline updated.",
		"flash.interaction_created": "Interaction recorded.",
		"flash.interaction_done":    "Interaction marked as completed.",
		"flash.profile_updated":     "Profile updated.",
		"flash.welcome":             "Welcome to the CRM!",
		"flash.no_permission":       "You do not have permission to access this resource.",
		"flash.user_updated":        "User updated.",
		"flash.user_deleted":        "User deleted.",
		"flash.upstream":            "An external service failed. Please try again.",
		"flash.error":               "Something went wrong.",
		"login.invalid":             "Invalid username or password",
		"flash.interaction_updated": "Interaction updated.",
		"flash.interaction_deleted": "Interaction deleted.",
		"flash.not_found":           "Not found.",

		// navigation and page titles
		"nav.dashboard":        "Dashboard",
		"nav.clients":          "Clients",
		"nav.leads":            "Leads",
		"nav.pipeline":         "Pipeline",
		"nav.profile":          "Profile",
		"nav.users":            "Users",
		"nav.logout":           "Log out",
		"login.title":          "Log in",
		"login.submit":         "Log in",
		"signup.title":         "Create an account",
		"signup.submit":        "Sign up",
		"profile.title":        "My profile",
		"client.new":           "New client",
		"client.edit":          "Edit client",
		"lead.new":             "New lead",
		"lead.edit":            "Edit lead",
		"lead.move":            "Move",
		"interaction.new":      "New interaction",
		"interaction.edit":     "Edit interaction",
		"interaction.complete": "Mark as done",
		"user.activate":        "Activate",
		"user.deactivate":      "Deactivate",
		"user.you":             "You",

		"dashboard.interactions":  "Interactions",
		"dashboard.conversion":    "Conversion rate",
		"dashboard.count":         "Count",
		"dashboard.sales_by_user": "Sales by user",
		"dashboard.recent":        "Recent interactions",

		// form fields
		"field.username":            "Username",
		"field.password":            "Password",
		"field.password_confirm":    "Confirm password",
		"field.first_name":          "First name",
		"field.last_name":           "Last name",
		"field.email":               "Email",
		"field.phone":               "Phone",
		"field.position":            "Position",
		"field.avatar":              "Avatar URL",
		"field.avatar_file":         "Upload avatar",
		"field.is_active":           "Active",
		"field.name":                "Name",
		"field.company":             "Company",
		"field.website":             "Website",
		"field.industry":            "Industry",
		"field.notes":               "Notes",
		"field.owner":               "Owner",
		"field.client":              "Client",
		"field.status":              "Status",
		"field.source":              "Source",
		"field.assigned_to":         "Assigned to",
		"field.value":               "Value",
		"field.expected_close_date": "Expected close date",
		"field.type":                "Type",
		"field.subject":             "Subject",
		"field.occurred_at":         "Date",
		"field.follow_up_date":      "Follow-up date",

		"all":            "All",
		"filter":         "Filter",
		"search":         "Search",
		"save":           "Save",
		"cancel":         "Cancel",
		"edit":           "Edit",
		"delete":         "Delete",
		"confirm_delete": "Delete permanently?",
		"empty":          "Nothing here yet.",

		"unassigned": "Unassigned",
	},
	"pt": {
		"required":                "Obrigatório",
		"too_long":                "Muito longo",
		"too_short":               "Muito curto",
		"invalid":                 "Valor inválido",
		"invalid_email":           "Informe um e-mail válido",
		"invalid_url":             "Informe uma URL válida",
		"invalid_choice":          "Selecione uma opção válida",
		"invalid_date":            "Informe uma data válida (AAAA-MM-DD)",
		"invalid_number":          "Informe um número",
		"mismatch":                "Os dois valores não coincidem",
		"must_not_be_negative":    "Não pode ser negativo",
		"too_many_decimal_places": "No máximo 2 casas decimais",
		"out_of_range":            "Fora do intervalo",
		"already_exists":          "Já existe",
		"not_allowed":             "Não permitido",
		"append_only":             "As notas existentes não podem ser alteradas, apenas complementadas",
		"cannot_delete_self":      "Você não pode remover a própria conta",

		"status.new":      "Novo",
		"status.contact":  "Contato",
		"status.proposal": "Proposta",
		"status.won":      "Fechado",
		"status.lost":     "Perdido",

		"type.call":    "Chamada",
		"type.email":   "E-mail",
		"type.meeting": "Reunião",
		"type.note":    "Nota",

		"flash.client_created":      "Cliente criado com sucesso.",
		"flash.client_updated":      "Cliente atualizado com sucesso.",
		"flash.client_deleted":      "Cliente removido.",
		"flash.lead_created":        "Lead criado com sucesso.",
		"flash.lead_updated":        "Lead atualizado com sucesso.",
		"flash.lead_deleted":        "Lead removido.",
		"flash.lead_not_found":      "Lead não encontrado.",
		"flash.lead_forbidden":      "Você não pode editar este lead.",
		"flash.invalid_status":      "Status inválido.",
		"flash.pipeline_updated":    "Pipeline atualizado.",
		"flash.interaction_created": "Interação registrada.",
		"flash.interaction_done":    "Interação marcada como concluída.",
		"flash.profile_updated":     "Perfil atualizado.",
		"flash.welcome":             "Bem-vindo ao clientesCRM!",
		"flash.no_permission":       "Você não tem permissão para acessar este recurso.",
		"flash.user_updated":        "Usuário atualizado.",
		"flash.user_deleted":        "Usuário removido.",
		"flash.upstream":            "Um serviço externo falhou. Tente novamente.",
		"flash.error":               "Algo deu errado.",
		"login.invalid":             "Usuário ou senha inválidos",
		"flash.interaction_updated": "Interação atualizada.",
		"flash.interaction_deleted": "Interação removida.",
		"flash.not_found":           "Não encontrado.",

		"nav.dashboard":        "Painel",
		"nav.clients":          "Clientes",
		"nav.leads":            "Leads",
		"nav.pipeline":         "Pipeline",
		"nav.profile":          "Perfil",
		"nav.users":            "Usuários",
		"nav.logout":           "Sair",
		"login.title":          "Entrar",
		"login.submit":         "Entrar",
		"signup.title":         "Criar conta",
		"signup.submit":        "Cadastrar",
		"profile.title":        "Meu perfil",
		"client.new":           "Novo cliente",
		"client.edit":          "Editar cliente",
		"lead.new":             "Novo lead",
		"lead.edit":            "Editar lead",
		"lead.move":            "Mover",
		"interaction.new":      "Nova interação",
		"interaction.edit":     "Editar interação",
		"interaction.complete": "Marcar como concluída",
		"user.activate":        "Ativar",
		"user.deactivate":      "Desativar",
		"user.you":             "Você",

		"dashboard.interactions":  "Interações",
		"dashboard.conversion":    "Taxa de conversão",
		"dashboard.count":         "Quantidade",
		"dashboard.sales_by_user": "Vendas por usuário",
		"dashboard.recent":        "Interações recentes",

		"field.username":            "Usuário",
		"field.password":            "Senha",
		"field.password_confirm":    "Confirmar senha",
		"field.first_name":          "Nome",
		"field.last_name":           "Sobrenome",
		"field.email":               "E-mail",
		"field.phone":               "Telefone",
		"field.position":            "Cargo",
		"field.avatar":              "URL do avatar",
		"field.avatar_file":         "Enviar avatar",
		"field.is_active":           "Ativo",
		"field.name":                "Nome",
		"field.company":             "Empresa",
		"field.website":             "Site",
		"field.industry":            "Setor",
		"field.notes":               "Notas",
		"field.owner":               "Responsável",
		"field.client":              "Cliente",
		"field.status":              "Status",
		"field.source":              "Origem",
		"field.assigned_to":         "Atribuído a",
		"field.value":               "Valor",
		"field.expected_close_date": "Previsão de fechamento",
		"field.type":                "Tipo",
		"field.subject":             "Assunto",
		"field.occurred_at":         "Data",
		"field.follow_up_date":      "Data de retorno",

		"all":            "Todos",
		"filter":         "Filtrar",
		"search":         "Buscar",
		"save":           "Salvar",
		"cancel":         "Cancelar",
		"edit":           "Editar",
		"delete":         "Remover",
		"confirm_delete": "Remover definitivamente?",
		"empty":          "Nada por aqui ainda.",

		"unassigned": "Sem responsável",
	},
}

// Supported reports whether lang has a message table.
func Supported(lang string) bool {
	_, ok := messages[lang]
	return ok
}

// DetectLanguage picks the first supported primary tag of an Accept-Language header.
func DetectLanguage(accept string) string {
	for _, part := range strings.Split(accept, ",") {
		tag, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		primary, _, _ := strings.Cut(strings.ToLower(tag), "-")
		if Supported(primary) {
			return primary
		}
	}
	return DefaultLang
}

// T translates code. Unknown languages fall back to the default language,
// unknown codes to the code itself.
func T(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := messages[DefaultLang][code]; ok {
		return s
	}
	return code
}

type langKey struct{}

// WithLang stores the request language in the context.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

// LangFromContext returns the request language, or DefaultLang.
func LangFromContext(ctx context.Context) string {
	if l, ok := ctx.Value(langKey{}).(string); ok && l != "" {
		return l
	}
	return DefaultLang
}
