// Package loader registers the HTTP features of the service.
//
// A feature bundles a handler and its service behind the Feature interface:
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// The start command registers calendarsync and integrity on a Manager and
// calls LoadAll once the global middleware is in place. Disabled features are
// skipped; the first Load error aborts startup.
package loader
