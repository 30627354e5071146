// Package catalog talks to the remote, read-only catalog service that owns
// products and categories. The storefront never writes catalog data; the only
// mutating call is user creation, which the service answers with an id.
package catalog
