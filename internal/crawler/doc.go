// Package crawler implements the station crawl state machine: the session
// manager that owns the Appium session, the retry governor that bounds
// accumulated transient failures, the page scraper, and the loop that visits
// every map marker and appends what it finds to the data sink.
package crawler
