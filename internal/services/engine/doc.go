// Package engine talks to the external podcast synthesis engine. The engine
// turns source content plus a briefing into an audio episode with transcript
// and outline; podforge ships only this HTTP client and an interface for
// substituting it in tests.
package engine
