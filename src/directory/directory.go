package directory

import (
	"github.com/pkg/errors"

	"github.com/cafca/glia/src/database"
	"github.com/cafca/glia/src/logging"
	"github.com/cafca/glia/src/persona"
)

const personaBucket = "personas"

var log = logging.Log

// Directory resolves persona ids to their registered public key
// material. It satisfies vesicle.Directory and is injected wherever
// signatures are verified.
type Directory struct {
	db *database.Database
}

func New(db *database.Database) *Directory {
	return &Directory{db: db}
}

// Register stores the public half of a persona. Re-registering an id
// overwrites the previous record.
func (d *Directory) Register(p *persona.Persona) (err error) {
	if p.ID == "" {
		return errors.New("cannot register persona without id")
	}
	err = d.db.Set(personaBucket, p.ID, p.PublicPersona())
	if err != nil {
		return errors.Wrapf(err, "registering %s", p)
	}
	log.Debugf("registered %s", p)
	return
}

// PersonaByID returns the registered public persona, or nil when the
// id is unknown.
func (d *Directory) PersonaByID(id string) (p *persona.Persona, err error) {
	p = new(persona.Persona)
	err = d.db.Get(personaBucket, id, p)
	if errors.Cause(err) == database.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "looking up persona [%s]", id)
	}
	return p, nil
}
