package entropy

import (
	"strings"

	"github.com/safing/entropool/config"
	"github.com/safing/entropool/database/storage"
	"github.com/safing/entropool/qrng"
)

// Configuration Keys.
const (
	CfgRemoteURLKey           = "entropy/remote_url"
	CfgRemoteTimeoutKey       = "entropy/remote_timeout"
	CfgRemoteAPIKeyKey        = "entropy/remote_api_key"
	CfgRemoteUserKey          = "entropy/remote_user"
	CfgRemotePasswordKey      = "entropy/remote_password"
	CfgMaxUnitsPerRequestKey  = "entropy/max_units_per_request"
	CfgMaxRequestsPerBatchKey = "entropy/max_requests_per_batch"
	CfgFetchAttemptsKey       = "entropy/fetch_attempts"
	CfgMinRecordSizeKey       = "entropy/min_record_size"
	CfgMaxRecordSizeKey       = "entropy/max_record_size"
	CfgFlushThresholdKey      = "entropy/pool_flush_threshold"
	CfgStorageTypeKey         = "entropy/storage_type"
	CfgRecordFormatKey        = "entropy/record_format"
	CfgCacheSizeKey           = "entropy/cache_size"
)

var (
	remoteURL           config.StringOption
	remoteTimeout       config.IntOption
	remoteAPIKey        config.StringOption
	remoteUser          config.StringOption
	remotePassword      config.StringOption
	maxUnitsPerRequest  config.IntOption
	maxRequestsPerBatch config.IntOption
	fetchAttempts       config.IntOption
	minRecordSize       config.IntOption
	maxRecordSize       config.IntOption
	flushThreshold      config.IntOption
	storageType         config.StringOption
	recordFormat        config.StringOption
	cacheSize           config.IntOption
)

const positiveInt = "^[1-9][0-9]*$"

var defaultRemoteAPIKey string

// SetDefaultRemoteAPIKey sets the default API key for the remote service.
// It must be called before the module is prepped.
func SetDefaultRemoteAPIKey(key string) {
	defaultRemoteAPIKey = key
}

func registerConfig() error {
	for _, opt := range []*config.Option{
		{
			Name:            "Remote Entropy Service",
			Key:             CfgRemoteURLKey,
			Description:     "JSON endpoint of the remote hardware random number service.",
			OptType:         config.OptTypeString,
			ExpertiseLevel:  config.ExpertiseLevelExpert,
			RequiresRestart: true,
			DefaultValue:    qrng.DefaultURL,
			ValidationRegex: "^https?://.+$",
		},
		{
			Name:            "Remote Timeout",
			Key:             CfgRemoteTimeoutKey,
			Description:     "Maximum duration of a single request to the remote service, in seconds.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelExpert,
			RequiresRestart: true,
			DefaultValue:    int64(qrng.DefaultTimeout.Seconds()),
			ValidationRegex: positiveInt,
		},
		{
			Name:            "Remote API Key",
			Key:             CfgRemoteAPIKeyKey,
			Description:     "API key sent to the remote service, if set.",
			OptType:         config.OptTypeString,
			ExpertiseLevel:  config.ExpertiseLevelExpert,
			RequiresRestart: true,
			DefaultValue:    defaultRemoteAPIKey,
		},
		{
			Name:            "Remote User",
			Key:             CfgRemoteUserKey,
			Description:     "User for HTTP digest authentication with the remote service, if set.",
			OptType:         config.OptTypeString,
			ExpertiseLevel:  config.ExpertiseLevelExpert,
			RequiresRestart: true,
			DefaultValue:    "",
		},
		{
			Name:            "Remote Password",
			Key:             CfgRemotePasswordKey,
			Description:     "Password for HTTP digest authentication with the remote service.",
			OptType:         config.OptTypeString,
			ExpertiseLevel:  config.ExpertiseLevelExpert,
			RequiresRestart: true,
			DefaultValue:    "",
		},
		{
			Name:            "Units per Request",
			Key:             CfgMaxUnitsPerRequestKey,
			Description:     "Maximum amount of units the remote service returns per request.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelDeveloper,
			RequiresRestart: true,
			DefaultValue:    qrng.DefaultMaxUnitsPerRequest,
			ValidationRegex: positiveInt,
		},
		{
			Name:            "Requests per Batch",
			Key:             CfgMaxRequestsPerBatchKey,
			Description:     "Maximum amount of requests that are planned at once.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelDeveloper,
			RequiresRestart: true,
			DefaultValue:    qrng.DefaultMaxRequestsPerBatch,
			ValidationRegex: positiveInt,
		},
		{
			Name:            "Fetch Attempts",
			Key:             CfgFetchAttemptsKey,
			Description:     "How often a failed fetch from the remote service is attempted.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelExpert,
			RequiresRestart: true,
			DefaultValue:    DefaultFetchAttempts,
			ValidationRegex: positiveInt,
		},
		{
			Name:            "Minimum Record Size",
			Key:             CfgMinRecordSizeKey,
			Description:     "Minimum size of an entropy record, in bytes.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelExpert,
			RequiresRestart: true,
			DefaultValue:    DefaultMinRecordSize,
			ValidationRegex: positiveInt,
		},
		{
			Name:            "Maximum Record Size",
			Key:             CfgMaxRecordSizeKey,
			Description:     "Maximum size of an entropy record, in bytes.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelExpert,
			RequiresRestart: true,
			DefaultValue:    DefaultMaxRecordSize,
			ValidationRegex: positiveInt,
		},
		{
			Name:            "Pool Flush Threshold",
			Key:             CfgFlushThresholdKey,
			Description:     "The pool is committed as records when it holds more bytes than this.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelExpert,
			RequiresRestart: true,
			DefaultValue:    DefaultFlushThreshold,
			ValidationRegex: positiveInt,
		},
		{
			Name:            "Storage Type",
			Key:             CfgStorageTypeKey,
			Description:     "Storage backend for entropy records.",
			OptType:         config.OptTypeString,
			ExpertiseLevel:  config.ExpertiseLevelExpert,
			RequiresRestart: true,
			DefaultValue:    "bbolt",
			ValidationRegex: "^(" + strings.Join(storage.Types(), "|") + ")$",
		},
		{
			Name:            "Record Format",
			Key:             CfgRecordFormatKey,
			Description:     "Serialization format of stored records. Existing records stay readable when changed.",
			OptType:         config.OptTypeString,
			ExpertiseLevel:  config.ExpertiseLevelDeveloper,
			RequiresRestart: true,
			DefaultValue:    "json",
			ValidationRegex: "^(json|cbor|msgpack)$",
		},
		{
			Name:            "Record Cache Size",
			Key:             CfgCacheSizeKey,
			Description:     "Amount of records that are kept in memory.",
			OptType:         config.OptTypeInt,
			ExpertiseLevel:  config.ExpertiseLevelDeveloper,
			RequiresRestart: true,
			DefaultValue:    256,
			ValidationRegex: positiveInt,
		},
	} {
		if err := config.Register(opt); err != nil {
			return err
		}
	}

	remoteURL = config.Concurrent.GetAsString(CfgRemoteURLKey, qrng.DefaultURL)
	remoteTimeout = config.Concurrent.GetAsInt(CfgRemoteTimeoutKey, int64(qrng.DefaultTimeout.Seconds()))
	remoteAPIKey = config.Concurrent.GetAsString(CfgRemoteAPIKeyKey, defaultRemoteAPIKey)
	remoteUser = config.Concurrent.GetAsString(CfgRemoteUserKey, "")
	remotePassword = config.Concurrent.GetAsString(CfgRemotePasswordKey, "")
	maxUnitsPerRequest = config.Concurrent.GetAsInt(CfgMaxUnitsPerRequestKey, qrng.DefaultMaxUnitsPerRequest)
	maxRequestsPerBatch = config.Concurrent.GetAsInt(CfgMaxRequestsPerBatchKey, qrng.DefaultMaxRequestsPerBatch)
	fetchAttempts = config.Concurrent.GetAsInt(CfgFetchAttemptsKey, DefaultFetchAttempts)
	minRecordSize = config.Concurrent.GetAsInt(CfgMinRecordSizeKey, DefaultMinRecordSize)
	maxRecordSize = config.Concurrent.GetAsInt(CfgMaxRecordSizeKey, DefaultMaxRecordSize)
	flushThreshold = config.Concurrent.GetAsInt(CfgFlushThresholdKey, DefaultFlushThreshold)
	storageType = config.Concurrent.GetAsString(CfgStorageTypeKey, "bbolt")
	recordFormat = config.Concurrent.GetAsString(CfgRecordFormatKey, "json")
	cacheSize = config.Concurrent.GetAsInt(CfgCacheSizeKey, 256)

	return nil
}
