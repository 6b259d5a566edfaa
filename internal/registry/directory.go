package registry

// directory is the IPEDS institutional directory dataset: one row per
// institution per year, keyed (unitid, year).
type directory struct{}

func (directory) Name() string { return "directory" }

func (directory) Descriptor() Descriptor { return directoryDescriptor }

var directoryDescriptor = Descriptor{
	Path:       "ipeds/directory/{year}/",
	PrimaryKey: []string{"unitid", "year"},
	Columns: []Column{
		// Primary key: one row per institution-year.
		{"unitid", "INTEGER NOT NULL"},
		{"year", "INTEGER NOT NULL"},

		// Identity and contact.
		{"opeid", "TEXT"},
		{"inst_name", "TEXT"},
		{"inst_alias", "TEXT"},
		{"address", "TEXT"},
		{"city", "TEXT"},
		{"state_abbr", "TEXT"},
		{"zip", "TEXT"},
		{"phone_number", "TEXT"},
		{"url_school", "TEXT"},
		{"url_fin_aid", "TEXT"},
		{"url_application", "TEXT"},
		{"url_netprice", "TEXT"},
		{"url_veterans", "TEXT"},
		{"url_athletes", "TEXT"},
		{"url_disability_services", "TEXT"},
		{"ein", "TEXT"},
		{"duns", "TEXT"},
		{"ueis", "TEXT"},
		{"chief_admin_name", "TEXT"},
		{"chief_admin_title", "TEXT"},
		{"inst_system_name", "TEXT"},

		// Geography.
		{"fips", "INTEGER"},
		{"county_name", "TEXT"},
		{"county_fips", "INTEGER"},
		{"region", "INTEGER"},
		{"urban_centric_locale", "INTEGER"},
		{"cbsa", "INTEGER"},
		{"cbsa_type", "INTEGER"},
		{"csa", "INTEGER"},
		{"necta", "INTEGER"},
		{"congress_district_id", "INTEGER"},
		{"latitude", "DOUBLE PRECISION"},
		{"longitude", "DOUBLE PRECISION"},

		// Status and attributes.
		{"inst_status", "INTEGER"},
		{"sector", "INTEGER"},
		{"inst_control", "INTEGER"},
		{"institution_level", "INTEGER"},
		{"inst_category", "INTEGER"},
		{"inst_size", "INTEGER"},
		{"degree_granting", "INTEGER"},
		{"title_iv_indicator", "INTEGER"},
		{"hbcu", "INTEGER"},
		{"tribal_college", "INTEGER"},
		{"land_grant", "INTEGER"},
		{"hospital", "INTEGER"},
		{"medical_degree", "INTEGER"},
		{"open_public", "INTEGER"},
		{"currently_active_ipeds", "INTEGER"},
		{"postsec_public_active", "INTEGER"},
		{"postsec_public_active_title_iv", "INTEGER"},
		{"primarily_postsecondary", "INTEGER"},
		{"offering_highest_degree", "INTEGER"},
		{"offering_highest_level", "INTEGER"},
		{"offering_undergrad", "INTEGER"},
		{"offering_grad", "INTEGER"},
		{"reporting_method", "INTEGER"},
		{"inst_system_flag", "INTEGER"},
		{"comparison_group", "INTEGER"},
		{"comparison_group_custom", "INTEGER"},

		// Mergers, deletions, dates. date_closed often arrives as free text.
		{"newid", "INTEGER"},
		{"date_closed", "TEXT"},
		{"year_deleted", "INTEGER"},

		// Carnegie classifications.
		{"cc_basic_2000", "INTEGER"},
		{"cc_basic_2010", "INTEGER"},
		{"cc_basic_2015", "INTEGER"},
		{"cc_basic_2018", "INTEGER"},
		{"cc_basic_2021", "INTEGER"},
		{"cc_instruc_undergrad_2010", "INTEGER"},
		{"cc_instruc_undergrad_2015", "INTEGER"},
		{"cc_instruc_undergrad_2018", "INTEGER"},
		{"cc_instruc_undergrad_2021", "INTEGER"},
		{"cc_instruc_grad_2010", "INTEGER"},
		{"cc_instruc_grad_2015", "INTEGER"},
		{"cc_instruc_grad_2018", "INTEGER"},
		{"cc_instruc_grad_2021", "INTEGER"},
		{"cc_undergrad_2010", "INTEGER"},
		{"cc_undergrad_2015", "INTEGER"},
		{"cc_undergrad_2018", "INTEGER"},
		{"cc_undergrad_2021", "INTEGER"},
		{"cc_enroll_2010", "INTEGER"},
		{"cc_enroll_2015", "INTEGER"},
		{"cc_enroll_2018", "INTEGER"},
		{"cc_enroll_2021", "INTEGER"},
		{"cc_size_setting_2010", "INTEGER"},
		{"cc_size_setting_2015", "INTEGER"},
		{"cc_size_setting_2018", "INTEGER"},
		{"cc_size_setting_2021", "INTEGER"},
	},
}

// MapRecord normalizes one raw directory record into a row matching
// directoryDescriptor exactly. Candidate key lists tolerate the field renames
// that show up across vintages.
func (directory) MapRecord(raw map[string]any) map[string]any {
	return map[string]any{
		"unitid": intColumn(Pick(raw, "unitid")),
		"year":   intColumn(Pick(raw, "year")),

		"opeid":                   stringColumn(Pick(raw, "opeid")),
		"inst_name":               stringColumn(Pick(raw, "inst_name", "institution_name", "instnm", "name")),
		"inst_alias":              stringColumn(Pick(raw, "inst_alias")),
		"address":                 stringColumn(Pick(raw, "address")),
		"city":                    stringColumn(Pick(raw, "city")),
		"state_abbr":              stringColumn(Pick(raw, "state_abbr", "stabbr", "state")),
		"zip":                     stringColumn(Pick(raw, "zip", "zip5", "zip_code")),
		"phone_number":            stringColumn(Pick(raw, "phone_number", "phone")),
		"url_school":              stringColumn(Pick(raw, "url_school", "website", "web_address")),
		"url_fin_aid":             stringColumn(Pick(raw, "url_fin_aid")),
		"url_application":         stringColumn(Pick(raw, "url_application")),
		"url_netprice":            stringColumn(Pick(raw, "url_netprice")),
		"url_veterans":            stringColumn(Pick(raw, "url_veterans")),
		"url_athletes":            stringColumn(Pick(raw, "url_athletes")),
		"url_disability_services": stringColumn(Pick(raw, "url_disability_services")),
		"ein":                     stringColumn(Pick(raw, "ein")),
		"duns":                    stringColumn(Pick(raw, "duns")),
		"ueis":                    stringColumn(Pick(raw, "ueis")),
		"chief_admin_name":        stringColumn(Pick(raw, "chief_admin_name")),
		"chief_admin_title":       stringColumn(Pick(raw, "chief_admin_title")),
		"inst_system_name":        stringColumn(Pick(raw, "inst_system_name")),

		"fips":                 intColumn(Pick(raw, "fips")),
		"county_name":          stringColumn(Pick(raw, "county_name")),
		"county_fips":          intColumn(Pick(raw, "county_fips")),
		"region":               intColumn(Pick(raw, "region")),
		"urban_centric_locale": intColumn(Pick(raw, "urban_centric_locale", "locale")),
		"cbsa":                 intColumn(Pick(raw, "cbsa")),
		"cbsa_type":            intColumn(Pick(raw, "cbsa_type")),
		"csa":                  intColumn(Pick(raw, "csa")),
		"necta":                intColumn(Pick(raw, "necta")),
		"congress_district_id": intColumn(Pick(raw, "congress_district_id")),
		"latitude":             floatColumn(Pick(raw, "latitude", "lat")),
		"longitude":            floatColumn(Pick(raw, "longitude", "lon", "lng")),

		"inst_status":                    intColumn(Pick(raw, "inst_status")),
		"sector":                         intColumn(Pick(raw, "sector", "sector_cd")),
		"inst_control":                   intColumn(Pick(raw, "inst_control", "control")),
		"institution_level":              intColumn(Pick(raw, "institution_level", "level", "iclevel")),
		"inst_category":                  intColumn(Pick(raw, "inst_category")),
		"inst_size":                      intColumn(Pick(raw, "inst_size")),
		"degree_granting":                intColumn(Pick(raw, "degree_granting")),
		"title_iv_indicator":             intColumn(Pick(raw, "title_iv_indicator")),
		"hbcu":                           intColumn(Pick(raw, "hbcu")),
		"tribal_college":                 intColumn(Pick(raw, "tribal_college")),
		"land_grant":                     intColumn(Pick(raw, "land_grant")),
		"hospital":                       intColumn(Pick(raw, "hospital")),
		"medical_degree":                 intColumn(Pick(raw, "medical_degree")),
		"open_public":                    intColumn(Pick(raw, "open_public")),
		"currently_active_ipeds":         intColumn(Pick(raw, "currently_active_ipeds")),
		"postsec_public_active":          intColumn(Pick(raw, "postsec_public_active")),
		"postsec_public_active_title_iv": intColumn(Pick(raw, "postsec_public_active_title_iv")),
		"primarily_postsecondary":        intColumn(Pick(raw, "primarily_postsecondary")),
		"offering_highest_degree":        intColumn(Pick(raw, "offering_highest_degree")),
		"offering_highest_level":         intColumn(Pick(raw, "offering_highest_level")),
		"offering_undergrad":             intColumn(Pick(raw, "offering_undergrad")),
		"offering_grad":                  intColumn(Pick(raw, "offering_grad")),
		"reporting_method":               intColumn(Pick(raw, "reporting_method")),
		"inst_system_flag":               intColumn(Pick(raw, "inst_system_flag")),
		"comparison_group":               intColumn(Pick(raw, "comparison_group")),
		"comparison_group_custom":        intColumn(Pick(raw, "comparison_group_custom")),

		"newid":        intColumn(Pick(raw, "newid")),
		"date_closed":  stringColumn(Pick(raw, "date_closed")),
		"year_deleted": intColumn(Pick(raw, "year_deleted")),

		"cc_basic_2000":             intColumn(Pick(raw, "cc_basic_2000")),
		"cc_basic_2010":             intColumn(Pick(raw, "cc_basic_2010")),
		"cc_basic_2015":             intColumn(Pick(raw, "cc_basic_2015")),
		"cc_basic_2018":             intColumn(Pick(raw, "cc_basic_2018")),
		"cc_basic_2021":             intColumn(Pick(raw, "cc_basic_2021")),
		"cc_instruc_undergrad_2010": intColumn(Pick(raw, "cc_instruc_undergrad_2010")),
		"cc_instruc_undergrad_2015": intColumn(Pick(raw, "cc_instruc_undergrad_2015")),
		"cc_instruc_undergrad_2018": intColumn(Pick(raw, "cc_instruc_undergrad_2018")),
		"cc_instruc_undergrad_2021": intColumn(Pick(raw, "cc_instruc_undergrad_2021")),
		"cc_instruc_grad_2010":      intColumn(Pick(raw, "cc_instruc_grad_2010")),
		"cc_instruc_grad_2015":      intColumn(Pick(raw, "cc_instruc_grad_2015")),
		"cc_instruc_grad_2018":      intColumn(Pick(raw, "cc_instruc_grad_2018")),
		"cc_instruc_grad_2021":      intColumn(Pick(raw, "cc_instruc_grad_2021")),
		"cc_undergrad_2010":         intColumn(Pick(raw, "cc_undergrad_2010")),
		"cc_undergrad_2015":         intColumn(Pick(raw, "cc_undergrad_2015")),
		"cc_undergrad_2018":         intColumn(Pick(raw, "cc_undergrad_2018")),
		"cc_undergrad_2021":         intColumn(Pick(raw, "cc_undergrad_2021")),
		"cc_enroll_2010":            intColumn(Pick(raw, "cc_enroll_2010")),
		"cc_enroll_2015":            intColumn(Pick(raw, "cc_enroll_2015")),
		"cc_enroll_2018":            intColumn(Pick(raw, "cc_enroll_2018")),
		"cc_enroll_2021":            intColumn(Pick(raw, "cc_enroll_2021")),
		"cc_size_setting_2010":      intColumn(Pick(raw, "cc_size_setting_2010")),
		"cc_size_setting_2015":      intColumn(Pick(raw, "cc_size_setting_2015")),
		"cc_size_setting_2018":      intColumn(Pick(raw, "cc_size_setting_2018")),
		"cc_size_setting_2021":      intColumn(Pick(raw, "cc_size_setting_2021")),
	}
}
