// Package host assembles the game runtime from a config.Config.
//
// New builds every component, registers the app and session systems in a
// capability.Registry under the names configuration refers to, and resolves
// them into the two lifecycle controllers. Run starts the AppController and
// drives the scheduler until the context ends; Shutdown tears the systems
// down in reverse order and closes the save database.
//
// Registered systems:
//
//	behavior  saves         saves.System
//	behavior  settings      settings.System
//	behavior  preloader     scene.Preloader
//	behavior  audio         audio.Player
//	behavior  pause         pause.System
//	behavior  session       lifecycle.SessionController
//	data      perf-overlay  PerfOverlay (session scoped)
//
// Console exposes the in-process command tree. Its commands execute on the
// scheduler goroutine.
package host
