package cleaner

// Canonical column names used from the Cleaner onward.
const (
	ColEventTitle     = "Event Title"
	ColEventType      = "Event Type"
	ColDate           = "Date"
	ColGradStudents   = "Grad Students"
	ColPostdocs       = "Postdocs"
	ColFaculty        = "Faculty"
	ColStaff          = "Staff"
	ColTotalAttendees = "Total Attendees"
	ColFundingSource  = "Funding Source"
)

// Sentinel replaces every cell still missing at the end of cleaning.
const Sentinel = "N/A"

// RenameRule maps one source header to its canonical name.
type RenameRule struct {
	From string
	To   string
}

// RenameRules lists every known source header of the outreach form export.
// Source headers are matched verbatim, trailing whitespace and doubled
// spaces included. Supporting a new export layout means adding entries here.
var RenameRules = []RenameRule{
	{From: "Event/Activity Title ", To: ColEventTitle},
	{From: "Type of Event", To: ColEventType},
	{From: `Grad Students (if none, enter "None")`, To: ColGradStudents},
	{From: `Postdocs  (if none, enter "None")`, To: ColPostdocs},
	{From: `Faculty  (if none, enter "None")`, To: ColFaculty},
	{From: `Staff (if none, enter "None")`, To: ColStaff},
	{From: "Total # of Attendees (approximate)", To: ColTotalAttendees},
	{From: "Funding Source (please list all funding sources for the event, including CIERA, and/or specific grants if you know them)", To: ColFundingSource},
}

// MandatoryColumns must be present for a row to count as a real record.
var MandatoryColumns = []string{ColEventTitle, ColEventType, ColDate}

// TextRepair is a literal substitution applied to text cells.
type TextRepair struct {
	Old string
	New string
}

// TextRepairColumns maps each repaired column to its substitutions.
var TextRepairColumns = map[string][]TextRepair{
	ColFundingSource: {{Old: "&amp;", New: "&"}},
}

// renameMapping flattens rules into the lookup RenameColumns expects.
// Later rules win if a source header is listed twice.
func renameMapping(rules []RenameRule) map[string]string {
	m := make(map[string]string, len(rules))
	for _, r := range rules {
		m[r.From] = r.To
	}
	return m
}
