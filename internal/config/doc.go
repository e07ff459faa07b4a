// Package config provides configuration management for the crossplot service.
//
// Configuration is loaded once at startup from environment variables using the
// env package. Object storage credentials and the bucket name are required;
// everything else has a default suitable for a single container.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("HTTP server will listen on %s\n", cfg.GetHTTPAddr())
package config
