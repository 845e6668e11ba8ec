// Package profiles stores generation profiles, the named presets that drive
// episode synthesis. Episode profiles select outline and transcript models
// plus the default briefing; speaker profiles select the TTS stack and cast.
// Profiles are owned by external configuration: podforge seeds a starter set,
// imports more from TOML, and otherwise only reads them.
package profiles
