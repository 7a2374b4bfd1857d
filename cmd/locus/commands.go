package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"locus/pkg/client"
	"locus/pkg/store"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in and remember the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword()
		if err != nil {
			return err
		}
		s, err := open(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer s.Close()

		u, err := s.ws.Login(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		color.Green("Logged in as %s", u.Username)
		return nil
	},
}

var (
	firstName string
	lastName  string
)

var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create an account and log in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword()
		if err != nil {
			return err
		}
		s, err := open(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer s.Close()

		u, err := s.ws.Register(cmd.Context(), client.RegisterRequest{
			Username:  args[0],
			Password:  password,
			FirstName: firstName,
			LastName:  lastName,
		})
		if err != nil {
			return err
		}
		color.Green("Registered %s", u.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := open(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.ws.Logout(cmd.Context()); err != nil {
			return err
		}
		color.Green("Logged out")
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := open(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer s.Close()

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tTITLE\tAUTHORS")
		for _, doc := range s.ws.Catalog() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", doc.ID, doc.ContentType, doc.Title, authorNames(doc.Authors))
		}
		return tw.Flush()
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a document, its highlights and its citations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid document id %q", args[0])
		}
		s, err := open(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.ws.Open(id); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		sess := s.ws.Session()
		color.New(color.Bold).Fprintln(out, sess.Title)
		if len(sess.Authors) > 0 {
			fmt.Fprintln(out, authorNames(sess.Authors))
		}
		fmt.Fprintln(out)

		if sess.Type.RichText() {
			text, err := s.ws.Text()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, text)
			cited, err := s.ws.Citations()
			if err != nil {
				return err
			}
			if len(cited) > 0 {
				color.New(color.FgYellow).Fprintln(out, "\nCited")
				for _, doc := range cited {
					fmt.Fprintf(out, "  %s  %s\n", doc.ID, doc.Title)
				}
			}
		} else {
			fmt.Fprintln(out, sess.Content)
		}

		highlights := s.ws.Highlights(id)
		if len(highlights) > 0 {
			color.New(color.FgYellow).Fprintln(out, "\nHighlights")
			for _, h := range highlights {
				fmt.Fprintf(out, "  %q", h.Text)
				if h.Comment != "" {
					fmt.Fprintf(out, " (%s)", h.Comment)
				}
				fmt.Fprintln(out)
			}
		}
		return nil
	},
}

var (
	noteTitle string
	noteFile  string
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Save a new note from a file or standard input",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readNote(cmd.InOrStdin())
		if err != nil {
			return err
		}
		s, err := open(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer s.Close()

		s.ws.New()
		if err := s.ws.SetTitle(noteTitle); err != nil {
			return err
		}
		if err := s.ws.SetText(text); err != nil {
			return err
		}
		if err := s.ws.Save(cmd.Context()); err != nil {
			return err
		}
		if sess := s.ws.Session(); sess.ID != nil {
			color.Green("Saved %s", sess.ID)
		}
		return nil
	},
}

var (
	highlightComment string
)

var highlightCmd = &cobra.Command{
	Use:   "highlight <id> <text>",
	Short: "Highlight a passage of a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid document id %q", args[0])
		}
		s, err := open(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.ws.Open(id); err != nil {
			return err
		}
		position := fmt.Sprintf(`{"text":%q}`, args[1])
		h, err := s.ws.CreateHighlight(cmd.Context(), []byte(position), args[1], highlightComment)
		if err != nil {
			return err
		}
		color.Green("Highlight %s created", h.ID)
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull the reference library into the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := open(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer s.Close()

		version, err := s.ws.Sync(cmd.Context())
		if err != nil {
			return err
		}
		color.Green("Library at version %d, %d documents", version, len(s.ws.Catalog()))
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Fetch the PDF attachment of a reference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid document id %q", args[0])
		}
		s, err := open(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.ws.DownloadAttachment(cmd.Context(), id); err != nil {
			return err
		}
		if doc, ok := s.ws.Catalog().Find(id); ok && doc.Filename != "" {
			color.Green("Attachment available at %s/attachment/%s", strings.TrimRight(serverURL, "/"), doc.Filename)
		}
		return nil
	},
}

var includeHighlight bool

var askCmd = &cobra.Command{
	Use:   "ask <id> <question>",
	Short: "Ask the assistant about a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid document id %q", args[0])
		}
		ctx := cmd.Context()
		s, err := open(ctx, true)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.ws.Open(id); err != nil {
			return err
		}
		if includeHighlight {
			if hs := s.ws.Highlights(id); len(hs) > 0 {
				if err := s.ws.SelectHighlight(hs[len(hs)-1].ID); err != nil {
					return err
				}
			}
		}

		token := ""
		if u, ok := s.ws.User(); ok {
			token = u.Token
		}
		sock, err := client.DialSocket(ctx, socketURL(), token)
		if err != nil {
			return err
		}
		defer sock.Close()
		s.ws.SetChannel(sock)

		if err := s.ws.SendMessage(args[1], includeHighlight); err != nil {
			return err
		}
		return stream(ctx, cmd.OutOrStdout(), s, sock)
	},
}

// stream prints the reply as it arrives and returns after the final chunk.
func stream(ctx context.Context, out io.Writer, s *session, sock *client.Socket) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-sock.Events():
			if !ok {
				if err := sock.Err(); err != nil {
					return err
				}
				return fmt.Errorf("connection closed before the reply finished")
			}
			err := s.ws.HandleEvent(ctx, evt)
			if evt.Name == client.EventError {
				return err
			}
			if err != nil {
				s.log.Warn("CLI", "Failed to apply event", map[string]interface{}{"event": evt.Name, "error": err.Error()})
			}
			if evt.Name != client.EventLLMResponse {
				continue
			}
			if evt.Response.Content != nil {
				fmt.Fprint(out, *evt.Response.Content)
			}
			if evt.Response.IsFinal {
				fmt.Fprintln(out)
				return nil
			}
		}
	}
}

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List stored conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := open(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer s.Close()

		for _, t := range s.ws.Chats() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", t.ID, t.Label())
		}
		return nil
	},
}

func authorNames(authors []store.Author) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, strings.TrimSpace(a.FirstName+" "+a.LastName))
	}
	return strings.Join(names, ", ")
}

func readPassword() (string, error) {
	if pw := os.Getenv("LOCUS_PASSWORD"); pw != "" {
		return pw, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		return string(b), err
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readNote(stdin io.Reader) (string, error) {
	if noteFile != "" && noteFile != "-" {
		b, err := os.ReadFile(noteFile)
		return string(b), err
	}
	b, err := io.ReadAll(stdin)
	return string(b), err
}

func init() {
	registerCmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	registerCmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	writeCmd.Flags().StringVarP(&noteTitle, "title", "t", "Untitled", "note title")
	writeCmd.Flags().StringVarP(&noteFile, "file", "f", "-", "read the note from this file")
	highlightCmd.Flags().StringVarP(&highlightComment, "comment", "c", "", "comment on the highlight")
	askCmd.Flags().BoolVar(&includeHighlight, "with-highlight", false, "quote the latest highlight of the document")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, listCmd, showCmd, writeCmd,
		highlightCmd, syncCmd, downloadCmd, askCmd, chatsCmd)
}
