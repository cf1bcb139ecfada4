package query

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentGreeting    Intent = "greeting"
	IntentContactInfo Intent = "contact_info"
	IntentProducts    Intent = "products"
	IntentLeadership  Intent = "leadership"
	IntentPartners    Intent = "partners"
	IntentCompanyInfo Intent = "company_info"
	IntentGeneral     Intent = "general"
	IntentRealTime    Intent = "real_time"
	IntentFarewell    Intent = "farewell"
	IntentUnknown     Intent = "unknown"
)

var knownIntents = map[Intent]bool{
	IntentGreeting:    true,
	IntentContactInfo: true,
	IntentProducts:    true,
	IntentLeadership:  true,
	IntentPartners:    true,
	IntentCompanyInfo: true,
	IntentGeneral:     true,
	IntentRealTime:    true,
	IntentFarewell:    true,
	IntentUnknown:     true,
}

// ParseIntent validates a table or request supplied intent name.
func ParseIntent(s string) (Intent, bool) {
	intent := Intent(s)
	return intent, knownIntents[intent]
}

func (i Intent) String() string { return string(i) }
