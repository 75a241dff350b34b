// Package config loads the game host configuration.
//
// A configuration file is YAML. Load starts from Default, overlays the file,
// then applies GAMECORE_* environment variables and validates the result
// with struct tags:
//
//	tick_rate: 60
//	lobby_scene: lobby
//	scene_load_ticks: 2
//	preload_scenes: [ui_common, audio_banks]
//	default_profile: player
//	app_systems:
//	  - {name: saves, source: behavior}
//	  - {name: session, source: behavior}
//	session_systems:
//	  - {name: perf-overlay, source: data}
//	progression:
//	  path: levels.yaml
//	saves:
//	  path: saves.db
//	settings:
//	  path: settings.yaml
//	  watch: true
//
// Relative file paths are resolved against the directory of the config file.
// System names must match systems registered with the host's
// capability.Registry; an unknown name surfaces as a configuration error when
// the controllers are built.
package config
