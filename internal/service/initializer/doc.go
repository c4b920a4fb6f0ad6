// Package initializer bootstraps a product for publishing: it writes the
// default settings file and an empty appcast whose channel is ready to
// receive items.
package initializer
