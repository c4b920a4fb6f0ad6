// Package config defines the settings used to build appcast entries and
// provides helpers to load, validate and save them in YAML format.
//
// Defaults reproduce the Marker Data release; other products override the
// branding fields in appcast-settings.yaml instead of editing code.
package config
