// Package constants holds shared timing, sizing and endpoint values.
package constants

import "time"

// NAS endpoints
const (
	AuthPath          = "/auth"
	RootListingPath   = "/api/v1/file/root"
	ChildrenPath      = "/api/v1/files/children"
	SearchPath        = "/api/v1/files/search/"
	OTLCreatePath     = "/api/v1/files/otl"
	DownloadPath      = "/api/v1/download"
	DeletePath        = "/api/v1/files"
	OTLRedeemPath     = "/otl"
	OTLShareLinkRoute = "/onetimelink/"
)

// Session
const (
	// SessionTTL - lifetime of a stored login (the server-issued token lives about a day)
	SessionTTL = 24 * time.Hour

	// SessionExpiryMargin - a stored session this close to expiry is treated as gone
	SessionExpiryMargin = 1 * time.Minute
)

// One-time links
const (
	DefaultOTLExpiry       = 60 * time.Minute
	DefaultOTLMaxDownloads = 5
)

// Search
const (
	// SearchDebounce - quiet period after the last keystroke before a remote search fires
	SearchDebounce = 300 * time.Millisecond

	// FolderKeyword - filter query that selects every plain directory
	FolderKeyword = "folder"

	// FolderLabel - type label shown for entries without an extension
	FolderLabel = "Folder"
)

// Loading indicator
const (
	IndicatorTick = 100 * time.Millisecond
	IndicatorStep = 5
	IndicatorMax  = 100
)

// Downloads
const (
	// DefaultDownloadName - prefix of the fallback filename, followed by the file id
	DefaultDownloadName = "downloaded-file-"

	// DiskSpaceBufferPercent - additional space to require beyond the announced size (15%)
	DiskSpaceBufferPercent = 0.15

	// CopyBufferSize - buffer size used when streaming a download to disk
	CopyBufferSize = 256 * 1024

	// ProgressUpdateInterval - refresh rate of terminal progress bars
	ProgressUpdateInterval = 250 * time.Millisecond
)

// Event System
const (
	// EventBusDefaultBuffer - default buffer size for event channels
	EventBusDefaultBuffer = 256

	// EventBusMaxBuffer - maximum buffer size for high-throughput scenarios
	EventBusMaxBuffer = 4096
)

// Retry configuration
const (
	MaxRetries        = 3
	RetryInitialDelay = 200 * time.Millisecond
	RetryMaxDelay     = 5 * time.Second
)

// API
const (
	// APIContextTimeout - per-request timeout for listing, search and OTL calls
	APIContextTimeout = 30 * time.Second

	// DefaultRequestsPerSecond - client side request budget
	DefaultRequestsPerSecond = 20.0

	// DefaultRequestBurst - requests allowed above the steady rate
	DefaultRequestBurst = 10

	// MaxErrorBodyBytes - how much of an error response body is kept for messages
	MaxErrorBodyBytes = 4096
)

// HTTP/Network Configuration
const (
	HTTPIdleConnTimeout       = 90 * time.Second
	HTTPTLSHandshakeTimeout   = 30 * time.Second
	HTTPExpectContinueTimeout = 1 * time.Second
	HTTPDialTimeout           = 30 * time.Second
	HTTPDialKeepAlive         = 30 * time.Second
	ProxyWarmupTimeout        = 15 * time.Second
	DefaultProxyPort          = 8080
)
