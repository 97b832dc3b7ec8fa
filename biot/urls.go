package biot

// Endpoints of the Bio-T platform services consumed by this SDK.
const (
	LoginURL = "/ums/v2/users/login"

	TemplatesURL       = "/settings/v1/templates"
	GenericEntitiesURL = "/generic-entity/v1/generic-entities"
	DevicesURL         = "/device/v1/devices"
	UsageSessionsURL   = "/device/v1/devices/usage-sessions"
	FilesURL           = "/file/v1/files"
	FileUploadURL      = "/file/v1/files/upload"

	deviceHealthCheckURL        = "/device/system/healthCheck"
	genericEntityHealthCheckURL = "/generic-entity/system/healthCheck"
	fileHealthCheckURL          = "/file/system/healthCheck"
	dmsHealthCheckURL           = "/dms/system/healthCheck"
	settingsHealthCheckURL      = "/settings/system/healthCheck"
	umsHealthCheckURL           = "/ums/system/healthCheck"
)

// healthCheckEndpoints maps a service name, as it appears in an endpoint
// path, to the service's health check endpoint.
var healthCheckEndpoints = map[string]string{
	"device":         deviceHealthCheckURL,
	"generic-entity": genericEntityHealthCheckURL,
	"file":           fileHealthCheckURL,
	"dms":            dmsHealthCheckURL,
	"settings":       settingsHealthCheckURL,
	"ums":            umsHealthCheckURL,
}
