package destination

// Credentials is a delegated-auth credential pair authorizing the importer
// to act against the destination API on a user's behalf.
type Credentials struct {
	Key    string
	Secret string
}

// pageInfoResult is the typed shape of an action=query titles=... response.
type pageInfoResult struct {
	Query struct {
		Pages []struct {
			Title   string `json:"title"`
			Missing bool   `json:"missing"`
			Invalid bool   `json:"invalid"`
		} `json:"pages"`
	} `json:"query"`
}

// tokenResult is the typed shape of a meta=tokens response.
type tokenResult struct {
	Query struct {
		Tokens map[string]string `json:"tokens"`
	} `json:"query"`
}

// importResult is the typed shape of an action=import response.
type importResult struct {
	Import []ImportedPage `json:"import"`
}

// ImportedPage describes one page the destination accepted during an import.
type ImportedPage struct {
	Title     string `json:"title"`
	NS        int    `json:"ns"`
	Revisions int    `json:"revisions"`
}

// ImportOutcome is the decoded result of an XML import upload.
type ImportOutcome struct {
	Pages []ImportedPage
}

// createAccountResult is the typed shape of an action=createlocalaccount
// response.
type createAccountResult struct {
	CreateLocalAccount struct {
		Status string `json:"status"`
	} `json:"createlocalaccount"`
}
