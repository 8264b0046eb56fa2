// Package livereload is the development server: it serves the project's
// static files, injects a small reload client into HTML pages and pushes
// reload signals to connected browsers over socket.io.
//
// It is a development aid, not a production web server.
package livereload
