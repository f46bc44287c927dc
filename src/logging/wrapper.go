package logging

import (
	"fmt"

	seelog "github.com/cihub/seelog"
)

// SeelogWrapper is the process-level logger used by the souma server.
type SeelogWrapper struct {
	Log   seelog.LoggerInterface
	Level string
}

func (s *SeelogWrapper) init() error {
	if s.Level == "" {
		s.Level = "debug"
	}

	s.Log = seelog.Disabled

	// https://en.wikipedia.org/wiki/ANSI_escape_code#3/4_bit
	// https://github.com/cihub/seelog/wiki/Log-levels
	appConfig := `
	<seelog minlevel="` + s.Level + `">
	<outputs formatid="stdout">
	<filter levels="debug,trace">
		<console formatid="debug"/>
	</filter>
	<filter levels="info">
		<console formatid="info"/>
	</filter>
	<filter levels="critical,error">
		<console formatid="error"/>
	</filter>
	<filter levels="warn">
		<console formatid="warn"/>
	</filter>
	</outputs>
	<formats>
		<format id="stdout"   format="%Date %Time [%LEVEL] [PID-%pidLogFormatter] %File %FuncShort:%Line %Msg %n" />

		<format id="debug"   format="%Date %Time %EscM(37)[%LEVEL]%EscM(0) [PID-%pidLogFormatter] %File %FuncShort:%Line %Msg %n" />
		<format id="info"    format="%Date %Time %EscM(36)[%LEVEL]%EscM(0) [PID-%pidLogFormatter] %File %FuncShort:%Line %Msg %n" />
		<format id="warn"    format="%Date %Time %EscM(33)[%LEVEL]%EscM(0) [PID-%pidLogFormatter] %File %FuncShort:%Line %Msg %n" />
		<format id="error"   format="%Date %Time %EscM(31)[%LEVEL]%EscM(0) [PID-%pidLogFormatter] %File %FuncShort:%Line %Msg %n" />

	</formats>
	</seelog>
	`

	logger, err := seelog.LoggerFromConfigAsBytes([]byte(appConfig))
	if err != nil {
		return err
	}
	s.Log = logger
	return nil
}

func (s *SeelogWrapper) isValidLevel(level string) bool {
	levels := [6]string{"debug", "trace", "info", "critical", "error", "warn"}
	for i := range levels {
		if levels[i] == level {
			return true
		}
	}
	return false
}

func (s *SeelogWrapper) SetLevel(level string) error {
	if !s.isValidLevel(level) {
		return fmt.Errorf("not a valid logging level")
	}
	s.Level = level
	return s.init()
}

func New() SeelogWrapper {
	logger := SeelogWrapper{Level: "debug"}
	logger.init()
	return logger
}
