package email

const (
	subjectMatchOffers      = "New legal aid matches for your case"
	subjectMatchSelectedFmt = "A citizen selected you for a %s case"
	subjectMatchAcceptedFmt = "%s accepted your case"
	subjectMatchDeclinedFmt = "%s declined your case"
	subjectMatchExpired     = "Case assigned to another provider"
)
