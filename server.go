package main

import (
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/cafca/glia/src/database"
	"github.com/cafca/glia/src/directory"
	"github.com/cafca/glia/src/logging"
	"github.com/cafca/glia/src/persona"
	"github.com/cafca/glia/src/vesicle"
)

var (
	db      *database.Database
	dir     *directory.Directory
	soumaID string
	logger  = logging.New()
)

func MiddleWareHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Log request
		logger.Log.Debug(fmt.Sprintf("%v %v %v", c.Request.RemoteAddr, c.Request.Method, c.Request.URL))
		// Add base headers
		AddCORS(c)
		// Run next function
		c.Next()
	}
}

func AddCORS(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Max-Age", "86400")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// Run will start the souma listening for peers
func Run(verbose bool) (err error) {
	if !verbose {
		logger.SetLevel("info")
	}

	logger.Log.Debug("opening database")
	db, err = database.Open(path.Join(Location, "glia.sqlite3.db"))
	if err != nil {
		return
	}
	dir = directory.New(db)

	soumaID, err = loadSoumaID(db)
	if err != nil {
		return
	}
	logger.Log.Infof("Souma ID: %s", soumaID)

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func(d *database.Database) {
		<-c
		d.Close()
		os.Exit(1)
	}(db)
	defer db.Close()

	// Startup server
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(MiddleWareHandler(), gin.Recovery())
	r.GET("/ping", handlePing)
	r.POST("/v0/vesicles", handlePostVesicle)
	r.GET("/v0/vesicles/:id", handleGetVesicle)
	r.POST("/v0/personas", handlePostPersona)
	r.GET("/v0/personas/:id", handleGetPersona)

	logger.Log.Infof("Listening on port %s", Port)
	err = r.Run(":" + Port)
	return
}

// loadSoumaID returns the persistent id of this node, generating one
// on first start.
func loadSoumaID(db *database.Database) (id string, err error) {
	err = db.Get("config", "souma_id", &id)
	if errors.Cause(err) == database.ErrKeyNotFound {
		id = persona.NewID()
		err = db.Set("config", "souma_id", id)
	}
	return
}

func handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "souma_id": soumaID})
}

// handlePostVesicle receives a wire envelope from a peer, verifies it
// on read and stores it.
func handlePostVesicle(c *gin.Context) {
	body, err := ioutil.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	v, err := vesicle.Read(body, dir)
	if err != nil {
		status := http.StatusInternalServerError
		var malformed *vesicle.MalformedEnvelopeError
		switch {
		case errors.As(err, &malformed),
			errors.Cause(err) == vesicle.ErrUnsupportedVersion:
			status = http.StatusBadRequest
		case errors.Cause(err) == vesicle.ErrInvalidSignature:
			status = http.StatusForbidden
		case errors.Cause(err) == vesicle.ErrAuthorNotFound:
			// trust could not be evaluated, the peer may register the
			// author and retry
			status = http.StatusUnprocessableEntity
		}
		logger.Log.Warnf("rejected vesicle: %s", err.Error())
		c.JSON(status, gin.H{"success": false, "message": err.Error()})
		return
	}

	recipients := make([]string, 0, len(v.Keycrypt))
	for id := range v.Keycrypt {
		recipients = append(recipients, id)
	}
	err = db.SaveVesicle(v.ID, string(body), v.AuthorID, recipients)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}

	logger.Log.Infof("stored %s from souma [%s]", v, v.SoumaID)
	c.JSON(http.StatusOK, gin.H{"success": true, "id": v.ID})
}

func handleGetVesicle(c *gin.Context) {
	stored, err := db.GetVesicle(c.Param("id"))
	if err != nil {
		if errors.Cause(err) == database.ErrVesicleNotFound {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		}
		return
	}
	c.Data(http.StatusOK, "application/json", []byte(stored))
}

// handlePostPersona registers the public half of a persona so that
// vesicles signed by it can be verified.
func handlePostPersona(c *gin.Context) {
	var p persona.Persona
	if err := c.BindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	if err := dir.Register(&p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": p.ID})
}

func handleGetPersona(c *gin.Context) {
	p, err := dir.PersonaByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "persona not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}
