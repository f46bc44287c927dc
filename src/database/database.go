package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	flock "github.com/theckman/go-flock"

	"github.com/cafca/glia/src/logging"
)

var (
	log = logging.Log

	// ErrVesicleNotFound is returned when no vesicle is stored under
	// the requested id.
	ErrVesicleNotFound = errors.New("vesicle not found")

	// ErrKeyNotFound is returned when a keystore bucket has no entry
	// for the requested key.
	ErrKeyNotFound = errors.New("key not found")
)

// Database is the local souma store: stored vesicle envelopes with
// their recipient lists, plus a generic keystore used for personas and
// node configuration.
type Database struct {
	name     string
	db       *sql.DB
	fileLock *flock.Flock
}

// Open will open the database for transactions by first aquiring a filelock.
func Open(fileName string, readOnly ...bool) (d *Database, err error) {
	d = new(Database)
	d.name = fileName

	// if read-only, make sure the database exists
	if _, err = os.Stat(d.name); err != nil && len(readOnly) > 0 && readOnly[0] {
		err = errors.New(fmt.Sprintf("database '%s' does not exist", d.name))
		return
	}

	// obtain a lock on the database
	d.fileLock = flock.NewFlock(d.name + ".lock")
	for {
		locked, err := d.fileLock.TryLock()
		if err == nil && locked {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	// check if it is a new database
	newDatabase := false
	if _, err := os.Stat(d.name); os.IsNotExist(err) {
		newDatabase = true
	}

	// open sqlite3 database
	d.db, err = sql.Open("sqlite3", d.name)
	if err != nil {
		return
	}

	// create new database tables if needed
	if newDatabase {
		err = d.MakeTables()
		if err != nil {
			return
		}
	}

	return
}

// Close will close the database connection and remove the filelock.
func (d *Database) Close() (err error) {
	// close filelock
	err = d.fileLock.Unlock()
	if err != nil {
		log.Error(err)
	} else {
		os.Remove(d.name + ".lock")
	}
	// close database
	err2 := d.db.Close()
	if err2 != nil {
		err = err2
		log.Error(err)
	}
	return
}

// MakeTables creates the `keystore` table:
//
// 	BUCKET_KEY (TEXT)	VALUE (TEXT)
//
// the `vesicles` table holding wire envelopes keyed by id, and the
// `vesicle_recipients` table holding the current recipient list of
// each stored vesicle.
func (d *Database) MakeTables() (err error) {
	sqlStmt := `create table keystore (bucket_key text not null primary key, value text);`
	_, err = d.db.Exec(sqlStmt)
	if err != nil {
		err = errors.Wrap(err, "MakeTables")
		return
	}
	sqlStmt = `create index keystore_idx on keystore(bucket_key);`
	_, err = d.db.Exec(sqlStmt)
	if err != nil {
		err = errors.Wrap(err, "MakeTables")
		return
	}
	sqlStmt = `create table vesicles (id text not null primary key, json text, author text, created timestamp, modified timestamp, unique(id));`
	_, err = d.db.Exec(sqlStmt)
	if err != nil {
		err = errors.Wrap(err, "MakeTables, vesicles")
		return
	}
	sqlStmt = `create table vesicle_recipients (vesicle_id text not null, persona_id text not null, unique(vesicle_id, persona_id));`
	_, err = d.db.Exec(sqlStmt)
	if err != nil {
		err = errors.Wrap(err, "MakeTables, vesicle_recipients")
		return
	}
	sqlStmt = `create index idx_recipients on vesicle_recipients(vesicle_id);`
	_, err = d.db.Exec(sqlStmt)
	if err != nil {
		err = errors.Wrap(err, "MakeTables, vesicle_recipients")
		return
	}
	return
}

// Get will retrieve the value associated with a key.
func (d *Database) Get(bucket, key string, v interface{}) (err error) {
	stmt, err := d.db.Prepare("select value from keystore where bucket_key = ?")
	if err != nil {
		return errors.Wrap(err, "problem preparing SQL")
	}
	defer stmt.Close()
	var result string
	err = stmt.QueryRow(bucket + "/" + key).Scan(&result)
	if err == sql.ErrNoRows {
		return errors.Wrapf(ErrKeyNotFound, "%s/%s", bucket, key)
	}
	if err != nil {
		return errors.Wrap(err, "problem getting key")
	}

	return json.Unmarshal([]byte(result), &v)
}

// Set will set a value in the database, when using it like a keystore.
func (d *Database) Set(bucket, key string, value interface{}) (err error) {
	var b []byte
	b, err = json.Marshal(value)
	if err != nil {
		return err
	}
	tx, err := d.db.Begin()
	if err != nil {
		return errors.Wrap(err, "Set")
	}
	stmt, err := tx.Prepare("insert or replace into keystore(bucket_key,value) values (?, ?)")
	if err != nil {
		return errors.Wrap(err, "Set")
	}
	defer stmt.Close()

	_, err = stmt.Exec(bucket+"/"+key, string(b))
	if err != nil {
		return errors.Wrap(err, "Set")
	}

	err = tx.Commit()
	if err != nil {
		return errors.Wrap(err, "Set")
	}

	return
}

// SaveVesicle stores a wire envelope under its id, overwriting any
// previous version and replacing the recipient list wholesale.
func (d *Database) SaveVesicle(id, vesicleJSON, authorID string, recipients []string) (err error) {
	tx, err := d.db.Begin()
	if err != nil {
		return errors.Wrap(err, "SaveVesicle")
	}

	now := time.Now()
	stmt, err := tx.Prepare(`insert into vesicles(id, json, author, created, modified) values (?, ?, ?, ?, ?)
		on conflict(id) do update set json = excluded.json, author = excluded.author, modified = excluded.modified`)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "SaveVesicle")
	}
	_, err = stmt.Exec(id, vesicleJSON, authorID, now, now)
	stmt.Close()
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "SaveVesicle")
	}

	_, err = tx.Exec("delete from vesicle_recipients where vesicle_id = ?", id)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "SaveVesicle, recipients")
	}
	for _, r := range recipients {
		// the author can always open their own vesicle
		if r == authorID {
			continue
		}
		_, err = tx.Exec("insert or ignore into vesicle_recipients(vesicle_id, persona_id) values (?, ?)", id, r)
		if err != nil {
			tx.Rollback()
			return errors.Wrap(err, "SaveVesicle, recipients")
		}
	}

	err = tx.Commit()
	if err != nil {
		return errors.Wrap(err, "SaveVesicle")
	}
	log.Debugf("stored vesicle [%s] with %d recipients", id, len(recipients))
	return
}

// GetVesicle retrieves the stored wire envelope for an id.
func (d *Database) GetVesicle(id string) (vesicleJSON string, err error) {
	stmt, err := d.db.Prepare("select json from vesicles where id = ?")
	if err != nil {
		err = errors.Wrap(err, "problem preparing SQL")
		return
	}
	defer stmt.Close()
	err = stmt.QueryRow(id).Scan(&vesicleJSON)
	if err == sql.ErrNoRows {
		err = errors.Wrapf(ErrVesicleNotFound, "[%s]", id)
		return
	}
	if err != nil {
		err = errors.Wrap(err, "problem getting vesicle")
	}
	return
}

// VesicleRecipients returns the stored recipient list of a vesicle.
func (d *Database) VesicleRecipients(id string) (recipients []string, err error) {
	rows, err := d.db.Query("select persona_id from vesicle_recipients where vesicle_id = ? order by persona_id", id)
	if err != nil {
		err = errors.Wrap(err, "problem getting recipients")
		return
	}
	defer rows.Close()
	recipients = []string{}
	for rows.Next() {
		var r string
		if err = rows.Scan(&r); err != nil {
			return
		}
		recipients = append(recipients, r)
	}
	err = rows.Err()
	return
}
