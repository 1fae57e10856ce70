package core

var (
	_ KVStore         = (*MemoryStore)(nil)
	_ MetricsRecorder = NopMetricsRecorder{}
	_ ConfigProvider  = (*CfgxConfigProvider)(nil)
	_ OptionsResolver = GoOptionsResolver{}
	_ RawConfigLoader = staticRawConfigLoader{}

	_ RawItem = RawPost{}
	_ RawItem = RawComment{}
	_ RawItem = RawUnknown{}

	_ ServiceErrorConvertible = (*StorageError)(nil)
	_ ServiceErrorConvertible = (*StateMismatchError)(nil)
	_ ServiceErrorConvertible = (*ExchangeError)(nil)
	_ ServiceErrorConvertible = (*NotAuthenticatedError)(nil)
	_ ServiceErrorConvertible = (*AuthRejectedError)(nil)
	_ ServiceErrorConvertible = (*TransportError)(nil)
	_ ServiceErrorConvertible = (*MalformedItemError)(nil)
)
