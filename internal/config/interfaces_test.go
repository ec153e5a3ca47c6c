package config

// Compile-time checks that both providers satisfy SecretProvider.
var (
	_ SecretProvider = (*EnvVarProvider)(nil)
	_ SecretProvider = (*SSMProvider)(nil)
)
