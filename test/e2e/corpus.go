// Package e2e runs the ingestion and retrieval pipeline over a small corpus of
// generated files in every supported format.
package e2e

import (
	"os"
	"path/filepath"
)

// Entry is one corpus file.
type Entry struct {
	Name  string
	Title string
	Body  string
}

// Corpus returns the fixture entries. Each body is distinct and long enough to pass
// the result filter's minimum length.
func Corpus() []Entry {
	return []Entry{
		{"expense-policy.md", "Expense policy", "Travel expenses above 500 euros need written approval from a cost centre owner before booking. Receipts are uploaded within thirty days."},
		{"onboarding.txt", "Onboarding checklist", "New hires receive a laptop, a badge and a buddy on their first day. Access to the source repositories is granted after the security training."},
		{"vpn-howto.html", "VPN setup", "Install the corporate VPN client, sign in with single sign-on and pick the nearest gateway. Split tunnelling is disabled on managed devices."},
		{"holidays.json", "Public holidays", "Offices close on national holidays of the host country. Teams that support customers publish an on-call rota two weeks in advance."},
		{"suppliers.csv", "Preferred suppliers", "Hardware is ordered from the framework agreement catalogue. Orders outside the catalogue go through procurement and take about ten working days."},
		{"headcount.xlsx", "Headcount plan", "Engineering grows by twelve people next year, mostly in platform and data. Hiring managers open requisitions through the people portal."},
		{"incident-runbook.docx", "Incident runbook", "Declare an incident in the ops channel, assign a commander and start the timeline. Customer communication is owned by the support lead."},
		{"security.md", "Password rules", "Passwords are at least fourteen characters and are never reused across services. Hardware keys are mandatory for administrator accounts."},
		{"parking.txt", "Parking", "The garage under building B has forty spaces reserved for car sharing. Bicycle racks and showers are available on the ground floor."},
		{"retention.docx", "Data retention", "Customer records are deleted eighteen months after contract end unless legal hold applies. Backups expire after ninety days."},
	}
}

// Write encodes every entry into dir and returns the written paths.
func Write(dir string, entries []Entry) ([]string, error) {
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		content, err := Encode(filepath.Ext(e.Name), e.Title, e.Body)
		if err != nil {
			return nil, err
		}
		p := filepath.Join(dir, e.Name)
		if err := os.WriteFile(p, content, 0644); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
