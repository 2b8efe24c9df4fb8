// Package datalake provides the authenticated HTTP access layer for the
// datalake API: endpoint construction, the bearer-token client and the
// per-endpoint query types.
package datalake

import (
	"fmt"
	"net/url"
)

// Endpoints builds the tenant-scoped URL set for the datalake, data catalog
// and FSM APIs. Base URLs come from config so non-production tenants and
// test servers can be targeted.
type Endpoints struct {
	ionBase string
	ssoBase string
	tenant  string
}

func NewEndpoints(ionBase, ssoBase, tenant string) *Endpoints {
	return &Endpoints{ionBase: ionBase, ssoBase: ssoBase, tenant: tenant}
}

// TokenURL is the OAuth authorization server's access token endpoint.
func (e *Endpoints) TokenURL() string {
	return fmt.Sprintf("%s/%s/as/token.oauth2", e.ssoBase, e.tenant)
}

// PropertiesList returns the object-properties endpoint for a filter and
// record limit. The filter expression is URL-encoded and parenthesized the
// way the API expects.
func (e *Endpoints) PropertiesList(filter string, records int) string {
	return fmt.Sprintf("%s/%s/IONSERVICES/datalakeapi/v1/payloads/list?records=%d&filter=(%s)",
		e.ionBase, e.tenant, records, url.QueryEscape(filter))
}

// PropertiesSplit returns the splitquery endpoint, which yields a set of
// query filters for fetching object properties in chunks.
func (e *Endpoints) PropertiesSplit(filter string) string {
	return fmt.Sprintf("%s/%s/IONSERVICES/datalakeapi/v2/payloads/splitquery?filter=(%s)",
		e.ionBase, e.tenant, url.QueryEscape(filter))
}

// StreamByID returns the streaming endpoint for one data object.
func (e *Endpoints) StreamByID(id string) string {
	return fmt.Sprintf("%s/%s/IONSERVICES/datalakeapi/v1/payloads/streambyid?datalakeId=%s",
		e.ionBase, e.tenant, url.QueryEscape(id))
}

// ObjectMetadata returns the data catalog metadata endpoint for an object.
func (e *Endpoints) ObjectMetadata(objectName string) string {
	return fmt.Sprintf("%s/%s/IONSERVICES/datacatalog/v1/object/%s",
		e.ionBase, e.tenant, objectName)
}

// GenericList returns the FSM generic-list endpoint for a business class.
func (e *Endpoints) GenericList(businessClass, fields string, limit int) string {
	return fmt.Sprintf("%s/%s/FSM/fsm/soap/classes/%s/lists/_generic?_fields=%s&_limit=%d",
		e.ionBase, e.tenant, businessClass, url.QueryEscape(fields), limit)
}

// Filter builds a datalake document filter expression such as
// `dl_document_name eq 'FSM_Contract'`.
func Filter(property, operator, value string) string {
	return fmt.Sprintf("%s %s '%s'", property, operator, value)
}
