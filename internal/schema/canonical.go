package schema

// Kind is the coarse value type of a canonical column.
type Kind string

const (
	KindText      Kind = "text"
	KindInt       Kind = "int"
	KindFloat     Kind = "float"
	KindTimestamp Kind = "timestamp"
	KindDate      Kind = "date"
)

// Column describes one canonical destination column.
type Column struct {
	Name string
	Kind Kind
	// SQLType is the Postgres type used when bootstrapping the base table.
	SQLType string
	NotNull bool
	// Derived columns are filled by the pipeline rather than read from CSV.
	Derived bool
}

// Canonical column names.
const (
	ColFIPS              = "fips"
	ColAdminTwo          = "admin_two"
	ColProvinceState     = "province_state"
	ColCountryRegion     = "country_region"
	ColLastUpdate        = "last_update"
	ColLatitude          = "latitude"
	ColLongitude         = "longitude"
	ColConfirmed         = "confirmed"
	ColDeaths            = "deaths"
	ColRecovered         = "recovered"
	ColActive            = "active"
	ColCombinedKey       = "combined_key"
	ColIncidentRate      = "incident_rate"
	ColCaseFatalityRatio = "case_fatality_ratio"
	ColReportDate        = "report_date"
	ColETLInsertionDate  = "etl_insertion_date"
	ColFilename          = "filename"
)

// Columns is the canonical schema in destination insert order.
var Columns = []Column{
	{Name: ColFIPS, Kind: KindInt, SQLType: "bigint"},
	{Name: ColAdminTwo, Kind: KindText, SQLType: "text"},
	{Name: ColProvinceState, Kind: KindText, SQLType: "text"},
	{Name: ColCountryRegion, Kind: KindText, SQLType: "text"},
	{Name: ColLastUpdate, Kind: KindTimestamp, SQLType: "timestamp"},
	{Name: ColLatitude, Kind: KindFloat, SQLType: "numeric(12,2)"},
	{Name: ColLongitude, Kind: KindFloat, SQLType: "numeric(12,2)"},
	{Name: ColConfirmed, Kind: KindInt, SQLType: "bigint"},
	{Name: ColDeaths, Kind: KindInt, SQLType: "bigint"},
	{Name: ColRecovered, Kind: KindInt, SQLType: "bigint"},
	{Name: ColActive, Kind: KindInt, SQLType: "bigint"},
	{Name: ColCombinedKey, Kind: KindText, SQLType: "text"},
	{Name: ColIncidentRate, Kind: KindFloat, SQLType: "numeric(18,2)"},
	{Name: ColCaseFatalityRatio, Kind: KindFloat, SQLType: "numeric(18,2)"},
	{Name: ColReportDate, Kind: KindDate, SQLType: "date", NotNull: true, Derived: true},
	{Name: ColETLInsertionDate, Kind: KindTimestamp, SQLType: "timestamp", Derived: true},
	{Name: ColFilename, Kind: KindText, SQLType: "text", Derived: true},
}

// Aliases maps every known historical CSSE header to its canonical column.
// The mapping is many-to-one.
var Aliases = map[string]string{
	"FIPS":                ColFIPS,
	"Admin2":              ColAdminTwo,
	"Province_State":      ColProvinceState,
	"Province/State":      ColProvinceState,
	"Country_Region":      ColCountryRegion,
	"Country/Region":      ColCountryRegion,
	"Last_Update":         ColLastUpdate,
	"Last Update":         ColLastUpdate,
	"Lat":                 ColLatitude,
	"Latitude":            ColLatitude,
	"Long_":               ColLongitude,
	"Longitude":           ColLongitude,
	"Confirmed":           ColConfirmed,
	"Deaths":              ColDeaths,
	"Recovered":           ColRecovered,
	"Active":              ColActive,
	"Combined_Key":        ColCombinedKey,
	"Incidence_Rate":      ColIncidentRate,
	"Incident_Rate":       ColIncidentRate,
	"Case_Fatality_Ratio": ColCaseFatalityRatio,
	"Case-Fatality_Ratio": ColCaseFatalityRatio,
}

var byName = func() map[string]Column {
	m := make(map[string]Column, len(Columns))
	for _, c := range Columns {
		m[c.Name] = c
	}
	return m
}()

// Lookup returns the canonical column with the given name.
func Lookup(name string) (Column, bool) {
	c, ok := byName[name]
	return c, ok
}

// ColumnNames returns the canonical column names in insert order.
func ColumnNames() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.Name
	}
	return out
}
