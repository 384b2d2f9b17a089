package incubator

import "encoding/json"

// Continuation is the opaque continuation token map the MediaWiki API
// returns mid-listing. Values are carried back verbatim on the next request;
// RawMessage keeps non-string tokens intact.
type Continuation map[string]json.RawMessage

// allPagesResult is the typed shape of an action=query list=allpages response.
type allPagesResult struct {
	Continue Continuation `json:"continue"`
	Query    struct {
		AllPages []struct {
			PageID int    `json:"pageid"`
			NS     int    `json:"ns"`
			Title  string `json:"title"`
		} `json:"allpages"`
	} `json:"query"`
}

// revisionsResult is the typed shape of a prop=revisions rvprop=user response.
type revisionsResult struct {
	Continue Continuation `json:"continue"`
	Query    struct {
		Pages []struct {
			PageID    int    `json:"pageid"`
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Revisions []struct {
				User       string `json:"user"`
				UserHidden bool   `json:"userhidden"`
				Anon       bool   `json:"anon"`
			} `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
}
