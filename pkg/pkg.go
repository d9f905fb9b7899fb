// Copyright (C) 2017 ScyllaDB

package pkg

// version is set during build time.
var version = "dev"

// Version returns the application version.
func Version() string {
	return version
}
