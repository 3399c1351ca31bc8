package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/nicolagi/dirtydocs/internal/docshclient"
	"github.com/nicolagi/dirtydocs/internal/wire"
)

// multilineVerbs reply with zero or more lines on the same persistent NS
// connection, with no count or terminator, per §6.1/§4.4.
var multilineVerbs = map[string]bool{
	wire.VerbView:       true,
	wire.VerbViewTrash:  true,
	wire.VerbListReq:    true,
	wire.VerbList:       true,
	wire.VerbViewFolder: true,
	wire.VerbExec:       true,
}

func runVerb(sess *docshclient.Session, fields []string) error {
	verb := fields[0]
	line := strings.Join(fields, " ")

	if docshclient.RedirectedVerbs[verb] {
		return runRedirected(sess, verb, line, fields)
	}

	if multilineVerbs[verb] {
		lines, err := sess.DoMulti(line)
		if err != nil {
			return err
		}
		for _, l := range lines {
			fmt.Println(l)
		}
		return nil
	}

	reply, err := sess.Do(line)
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

func runRedirected(sess *docshclient.Session, verb, line string, fields []string) error {
	reply, err := sess.Do(line)
	if err != nil {
		return err
	}
	ip, port, ok := docshclient.ParseRedirect(verb, reply)
	if !ok {
		fmt.Println(reply)
		return nil
	}

	conn, r, err := docshclient.DialSS(ip, port)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := wire.WriteLine(conn, line); err != nil {
		return err
	}

	switch verb {
	case wire.VerbWrite:
		return runWriteSession(conn, r, fields)
	default:
		return dumpUntilEOF(r)
	}
}

// editReplyTimeout is how long runWriteSession waits for an optional
// per-line error reply (ERR_INVALID_WORD) before assuming a submitted edit
// line was accepted silently, per §4.8 step 4.
const editReplyTimeout = 100 * time.Millisecond

// dumpUntilEOF copies the SS's reply to stdout until it closes the
// connection, which it does once it has written a full reply, per §4.7.
func dumpUntilEOF(r *bufio.Reader) error {
	_, err := io.Copy(os.Stdout, r)
	if err != nil && err != io.EOF {
		return err
	}
	fmt.Println()
	return nil
}

// runWriteSession drives the WRITE edit loop of §4.8: after ACK_WRITE_LOCKED
// it prompts for "<word_index> <content>" lines, sent verbatim, until the
// user enters "." to commit via the ETIRW sentinel.
func runWriteSession(conn net.Conn, r *bufio.Reader, fields []string) error {
	first, err := wire.ReadLine(r)
	if err != nil {
		return err
	}
	if first != wire.AckWriteLocked {
		fmt.Println(first)
		return nil
	}
	fmt.Println(first, "- enter \"<word_index> <content>\" lines, \".\" to commit")

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("edit> ")
		if !in.Scan() {
			break
		}
		edit := in.Text()
		if edit == "." {
			break
		}
		if err := wire.WriteLine(conn, edit); err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(editReplyTimeout))
		if reply, err := wire.ReadLine(r); err == nil {
			fmt.Println(reply)
		}
	}
	conn.SetReadDeadline(time.Time{})
	if err := wire.WriteLine(conn, wire.WriteSentinel); err != nil {
		return err
	}
	final, err := wire.ReadLine(r)
	if err != nil {
		return err
	}
	fmt.Println(final)
	return nil
}
