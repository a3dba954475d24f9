package whatsapp

import "testing"

func sampleSummary() ChecklistSummary {
	return ChecklistSummary{
		Code:          "CHK_1001",
		Action:        "taking",
		EmployeeName:  "Carlos Lima",
		EquipmentName: "Furadeira Bosch",
		HasIssues:     true,
		Observations:  "  cabo gasto  ",
	}
}

func TestSubmissionMessage(t *testing.T) {
	want := "📋 *Checklist CHK_1001*\n" +
		"Ação: Retirada\n" +
		"Solicitante: Carlos Lima\n" +
		"Equipamento: Furadeira Bosch\n" +
		"⚠️ Problemas reportados: SIM\n" +
		"Observações: cabo gasto\n" +
		"\nResponda *SIM* para aprovar ou *NÃO* para rejeitar."
	if got := SubmissionMessage(sampleSummary()); got != want {
		t.Errorf("SubmissionMessage mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestSubmissionMessageWithoutIssues(t *testing.T) {
	s := sampleSummary()
	s.Action = "returning"
	s.HasIssues = false
	s.Observations = ""
	want := "📋 *Checklist CHK_1001*\n" +
		"Ação: Devolução\n" +
		"Solicitante: Carlos Lima\n" +
		"Equipamento: Furadeira Bosch\n" +
		"Problemas reportados: não\n" +
		"\nResponda *SIM* para aprovar ou *NÃO* para rejeitar."
	if got := SubmissionMessage(s); got != want {
		t.Errorf("SubmissionMessage mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestResolutionMessage(t *testing.T) {
	want := "ℹ️ Checklist CHK_1001 (Retirada - Furadeira Bosch) foi APROVADO por Ana.\nNenhuma ação é necessária."
	if got := ResolutionMessage(sampleSummary(), "Ana", true); got != want {
		t.Errorf("ResolutionMessage = %q, want %q", got, want)
	}
}

func TestLateResponseMessage(t *testing.T) {
	want := "⏱️ Sua resposta para o checklist CHK_1001 chegou depois da decisão.\nEle já foi REJEITADO por Ana via painel web."
	if got := LateResponseMessage("CHK_1001", "Ana", false, "web"); got != want {
		t.Errorf("LateResponseMessage = %q, want %q", got, want)
	}
}

func TestSupersededMessage(t *testing.T) {
	if got := SupersededMessage("Ana", true); got != "Checklist já foi aprovado por Ana" {
		t.Errorf("got %q", got)
	}
	if got := SupersededMessage("Ana", false); got != "Checklist já foi rejeitado por Ana" {
		t.Errorf("got %q", got)
	}
}
