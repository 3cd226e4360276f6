package port

import (
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/knieriem/text/rc"
)

type cmd struct {
	*exec.Cmd
}

// parseCommand recognizes device specs of the form "!command args",
// which run a program that emulates the bus.
func parseCommand(spec string) (c *cmd, match bool) {
	if !strings.HasPrefix(spec, "!") {
		return
	}
	if len(spec) < 2 {
		return
	}
	args := rc.Tokenize(spec[1:])
	if len(args) == 0 {
		return
	}
	match = true
	c = new(cmd)
	c.Cmd = exec.Command(args[0], args[1:]...)
	return
}

// CmdExitTimeout limits how long Close waits for a command to exit
// after its input has been closed, before the command is killed.
var CmdExitTimeout = time.Second

type cmdConn struct {
	r io.Reader
	io.WriteCloser
	cmd *exec.Cmd

	eof  chan struct{}
	once sync.Once
}

func (c *cmdConn) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if err != nil {
		c.once.Do(func() { close(c.eof) })
	}
	return n, err
}

// Close closes the command's input. Once the output has been read
// up to EOF, the command is waited for. Commands that do not exit
// in time are killed.
func (c *cmdConn) Close() error {
	err := c.WriteCloser.Close()
	select {
	case <-c.eof:
	case <-time.After(CmdExitTimeout):
		c.cmd.Process.Kill()
		select {
		case <-c.eof:
		case <-time.After(CmdExitTimeout):
		}
	}
	c.cmd.Wait()
	return err
}

func (c *cmd) Dial() (f io.ReadWriteCloser, err error) {
	w, err := c.StdinPipe()
	if err != nil {
		return
	}
	r, err := c.StdoutPipe()
	if err != nil {
		return
	}
	c.Stderr = os.Stderr
	err = c.Start()
	if err != nil {
		return
	}
	f = &cmdConn{r: r, WriteCloser: w, cmd: c.Cmd, eof: make(chan struct{})}
	return
}
