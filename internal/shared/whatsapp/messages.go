package whatsapp

import (
	"fmt"
	"strings"
)

// ChecklistSummary fields shown to managers in every message
type ChecklistSummary struct {
	Code          string
	Action        string
	EmployeeName  string
	EquipmentName string
	HasIssues     bool
	Observations  string
}

func actionLabel(action string) string {
	switch action {
	case "taking":
		return "Retirada"
	case "returning":
		return "Devolução"
	default:
		return action
	}
}

func sourceLabel(source string) string {
	switch source {
	case "whatsapp":
		return "WhatsApp"
	case "web":
		return "painel web"
	default:
		return source
	}
}

func decisionLabel(approved bool) string {
	if approved {
		return "APROVADO"
	}
	return "REJEITADO"
}

// SubmissionMessage asks a manager to approve or reject a checklist
func SubmissionMessage(s ChecklistSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 *Checklist %s*\n", s.Code)
	fmt.Fprintf(&b, "Ação: %s\n", actionLabel(s.Action))
	fmt.Fprintf(&b, "Solicitante: %s\n", s.EmployeeName)
	fmt.Fprintf(&b, "Equipamento: %s\n", s.EquipmentName)
	if s.HasIssues {
		b.WriteString("⚠️ Problemas reportados: SIM\n")
	} else {
		b.WriteString("Problemas reportados: não\n")
	}
	if obs := strings.TrimSpace(s.Observations); obs != "" {
		fmt.Fprintf(&b, "Observações: %s\n", obs)
	}
	b.WriteString("\nResponda *SIM* para aprovar ou *NÃO* para rejeitar.")
	return b.String()
}

// ResolutionMessage tells the other managers who decided a checklist
func ResolutionMessage(s ChecklistSummary, resolverName string, approved bool) string {
	return fmt.Sprintf("ℹ️ Checklist %s (%s - %s) foi %s por %s.\nNenhuma ação é necessária.",
		s.Code, actionLabel(s.Action), s.EquipmentName, decisionLabel(approved), resolverName)
}

// LateResponseMessage tells a manager their answer arrived after the decision
func LateResponseMessage(checklistCode, resolverName string, wasApproved bool, source string) string {
	return fmt.Sprintf("⏱️ Sua resposta para o checklist %s chegou depois da decisão.\nEle já foi %s por %s via %s.",
		checklistCode, decisionLabel(wasApproved), resolverName, sourceLabel(source))
}

// SupersededMessage is stored on approval records closed by another manager's decision
func SupersededMessage(resolverName string, approved bool) string {
	verb := "rejeitado"
	if approved {
		verb = "aprovado"
	}
	return fmt.Sprintf("Checklist já foi %s por %s", verb, resolverName)
}
