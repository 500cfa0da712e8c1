// Package ui provides the kanjidex terminal interface, built on Bubble Tea.
//
// # Views
//
// Three views share one Model:
//
//   - Levels: a list of levels beside a grid of the selected level's kanji.
//     Cell borders take the color of the character's SRS stage once it has
//     been learned on WaniKani.
//   - Detail: meaning, readings, WaniKani progress, the mnemonic and the
//     attached image of one kanji. The mnemonic is edited in place and saved
//     automatically after a short pause.
//   - Settings: the WaniKani API key form and the synced profile.
//
// # Data flow
//
// The Model never holds the character store. It reads from a Backend on
// every tick and after each action, and writes through it: mnemonic edits
// go to the debounced autosaver, image imports and clears go straight to
// the store, and syncs run in a tea.Cmd so the UI stays responsive.
//
// The most recent notifications are listed below the content; d dismisses
// the newest one.
//
// # Preferences
//
// The theme (T) and the learned filter (f) are persisted to the prefs file
// whenever they change.
package ui
