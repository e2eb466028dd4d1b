package amfiModel

// NavRow is one parsed line of the AMFI NAVAll.txt feed:
// scheme code;ISIN growth;ISIN reinvestment;scheme name;NAV;date
type NavRow struct {
	SchemeCode string
	SchemeName string
	Nav        string
	NavDate    string
}
