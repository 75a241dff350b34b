// Package settings loads, stores and hot-reloads the player's settings file.
package settings
