package sqlitestore

type Config struct {
	DSN         string `env:"SQLITE_DSN" envDefault:"file:fsm.sqlite?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"` // DSN in the form accepted by the ncruces driver.
	AutoMigrate bool   `env:"SQLITE_AUTO_MIGRATE" envDefault:"true"`                                                        // AutoMigrate applies the embedded schema on Open.
}
