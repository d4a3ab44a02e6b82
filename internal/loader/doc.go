// Package loader renders the source calendar page and extracts raw table rows.
//
// The calendar is populated by JavaScript, so the loader drives a headless
// Chrome instance to navigate, scroll the full month into the DOM, and detect
// the browser-local timezone the site renders its times in. The rendered
// table HTML is then handed to a goquery extractor, which is pure and
// testable against static fixtures.
package loader
