package app

// ValidateSecurityConfig enforces startup security policy.
//
// The admin registration secret may fall back to a documented development
// default; this is intentional but must never pass unnoticed, so this
// function logs a warning whenever the fallback is in effect instead of
// failing startup.
func ValidateSecurityConfig(cfg Config, log Logger) error {
	if cfg.AdminSecretIsDev {
		log.Warn("security.admin_secret.dev_default",
			"reason", "TESTSERVER_ADMIN_SECRET is unset; using the documented development default")
	}
	return nil
}
