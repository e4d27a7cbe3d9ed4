package store

// Schema is applied on every Open.
const Schema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	interval TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL,
	PRIMARY KEY (symbol, interval, timestamp)
);
`
