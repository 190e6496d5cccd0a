package database

import "net/url"

// redactURL hides the password of a connection string before it is logged.
func redactURL(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "<unparseable database url>"
	}
	return u.Redacted()
}
