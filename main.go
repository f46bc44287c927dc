package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cafca/glia/src/logging"
	"github.com/cafca/glia/src/persona"
)

var (
	// Port defines what port the souma listens on for peers
	Port = "8005"
	// Location defines where to open up the glia database
	Location = "."
)

func main() {
	flag.StringVar(&Port, "port", Port, "port for the peer API")
	flag.StringVar(&Location, "path", Location, "path to the glia database folder")
	debug := flag.Bool("debug", false, "turn on debug mode")
	generatePersona := flag.Bool("generate-persona", false, "generate keys for a new persona")
	username := flag.String("username", "", "username for a generated persona")
	flag.Parse()

	if *generatePersona {
		p, err := persona.New(*username)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf(`

	New Persona %s:

	ID: %s

	Encryption public key:  %s
	Encryption private key: %s

	Signing public key:  %s
	Signing private key: %s

`, p, p.ID, p.Keys.Public, p.Keys.Private, p.SignKeys.Public, p.SignKeys.Private)
		os.Exit(0)
	}

	if *debug {
		logging.SetLoggingLevel("debug")
	} else {
		logging.SetLoggingLevel("info")
	}

	err := Run(*debug)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
