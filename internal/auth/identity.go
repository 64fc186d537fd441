package auth

// Identity is the normalized set of claims asserted by the eID broker.
// It contains facts only, no decisions.
type Identity struct {
	Subject    string // stable broker identifier, links to the local account
	NationalID string
	FullName   string
	GivenName  string
	FamilyName string
	BirthDate  string
	Email      string // optional
	Phone      string // optional
	SSN        string // optional
	Nonce      string // echoed from the authorization request
}
