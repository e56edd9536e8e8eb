package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/config"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/gateway"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/planner"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Plan a wedding interactively",
	Long: `Start an interactive planning chat against a running vibewedding server.

By default the assistant builds and updates a wedding project (budget,
retroplanning, vendors). With --chat it only converses and never touches the
project.

Commands inside the chat:
  /project            show the current project
  /save               save the project to your dashboard
  /new                start a new project
  /login <user-id>    sign in
  /logout             sign out
  /mode               switch between organisation and chat mode
  /quit               leave`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().String("user", "", "sign in as this user id (default: chat.user_id)")
	chatCmd.Flags().Bool("chat", false, "conversation only, do not build a project")
	chatCmd.Flags().Bool("resume", false, "resume the last chat session")
}

// localIdentity is the signed-in user of a CLI chat.
type localIdentity struct {
	mu   sync.Mutex
	user *planner.Identity
}

func (l *localIdentity) CurrentUser(context.Context) (*planner.Identity, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.user == nil {
		return nil, nil
	}
	u := *l.user
	return &u, nil
}

func (l *localIdentity) login(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.user = &planner.Identity{UserID: userID}
}

func (l *localIdentity) logout() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.user = nil
}

type snapshotSaver interface {
	Save(st planner.State) error
}

type chatSession struct {
	ctrl         *planner.Controller
	identity     *localIdentity
	sessions     snapshotSaver // optional
	organization bool
	out          io.Writer
}

func runChat(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")
	chatOnly, _ := cmd.Flags().GetBool("chat")
	resume, _ := cmd.Flags().GetBool("resume")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}

	ident := &localIdentity{}
	if userID == "" {
		userID = cfg.Chat.UserID
	}
	if userID != "" {
		ident.login(userID)
	}

	ctrl := planner.New(client, client, ident,
		planner.WithAnonymousTurnLimit(cfg.Chat.AnonymousTurnLimit),
		planner.WithRequestTimeout(cfg.Chat.RequestTimeout),
	)

	s := &chatSession{ctrl: ctrl, identity: ident, organization: !chatOnly, out: os.Stdout}

	store, err := session.Open(cfg.Storage.DataDir)
	if err != nil {
		printWarning("session snapshots disabled: %v", err)
	} else {
		defer store.Close()
		s.sessions = store
		if resume {
			if err := resumeLast(ctrl, store); err != nil {
				printWarning("%v", err)
			}
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return s.run(ctx, os.Stdin)
}

func resumeLast(ctrl *planner.Controller, store *session.Store) error {
	rec, err := store.Last()
	if errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("no previous session to resume")
	}
	if err != nil {
		return err
	}
	if err := ctrl.Restore(rec.State); err != nil {
		return err
	}
	printSuccess("Resumed session %s (%d messages, saved %s)", rec.State.SessionID, len(rec.State.Messages), rec.SavedAt.Format("2006-01-02 15:04"))
	return nil
}

func (s *chatSession) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	mode := "organisation"
	if !s.organization {
		mode = "discussion"
	}
	fmt.Fprintf(s.out, "%s (mode %s, /quit pour quitter)\n", colorize(boldColor, "Vibe Wedding"), mode)

	for {
		fmt.Fprint(s.out, colorize(boldColor, "vous> "))
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		if quit := s.handle(ctx, scanner.Text()); quit || ctx.Err() != nil {
			return nil
		}
	}
}

// handle processes one input line and reports whether the chat should end.
func (s *chatSession) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		s.send(ctx, line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/project":
		s.showProject()
	case "/save":
		s.save(ctx)
	case "/new":
		if err := s.ctrl.StartNewProject(ctx); err != nil {
			s.notify(err)
			return false
		}
		s.snapshot()
		fmt.Fprintln(s.out, colorize(successColor, "Nouveau projet démarré."))
	case "/login":
		if arg == "" {
			fmt.Fprintln(s.out, colorize(warningColor, "Usage : /login <identifiant>"))
			return false
		}
		s.identity.login(arg)
		fmt.Fprintln(s.out, colorize(successColor, "Connecté en tant que "+arg+"."))
	case "/logout":
		s.identity.logout()
		fmt.Fprintln(s.out, "Déconnecté.")
	case "/mode":
		s.organization = !s.organization
		if s.organization {
			fmt.Fprintln(s.out, "Mode organisation : le projet sera mis à jour.")
		} else {
			fmt.Fprintln(s.out, "Mode discussion : le projet ne sera pas modifié.")
		}
	case "/help":
		fmt.Fprintln(s.out, "/project /save /new /login <id> /logout /mode /quit")
	default:
		fmt.Fprintln(s.out, colorize(warningColor, "Commande inconnue : "+cmd+" (/help)"))
	}
	return false
}

func (s *chatSession) send(ctx context.Context, text string) {
	msg, err := s.ctrl.SendMessage(ctx, text, s.organization)
	if err != nil {
		s.notify(err)
		return
	}
	s.snapshot()

	fmt.Fprintf(s.out, "%s %s\n", colorize(stepColor, "vibe>"), msg.Content)
	for _, v := range msg.Vendors {
		fmt.Fprintf(s.out, "  • %s\n", vendorLine(v))
	}
	if s.organization {
		if p := s.ctrl.Project(); p.HasContent() {
			fmt.Fprintf(s.out, "  %s\n", colorize(boldColor, "Projet : "+p.Title()))
		}
	}
	if msg.CTASelection {
		fmt.Fprintln(s.out, "  Tapez /save pour enregistrer votre projet.")
	}
	if s.ctrl.Status() == planner.StatusAuthRequired {
		fmt.Fprintln(s.out, colorize(warningColor, "Connectez-vous (/login <identifiant>) pour continuer la conversation."))
	}
}

func (s *chatSession) save(ctx context.Context) {
	id, err := s.ctrl.SaveProjectToDashboard(ctx)
	if err != nil {
		s.notify(err)
		return
	}
	fmt.Fprintln(s.out, colorize(successColor, "Projet enregistré dans votre tableau de bord ("+id+")."))
}

func (s *chatSession) showProject() {
	p := s.ctrl.Project()
	if !p.HasContent() {
		fmt.Fprintln(s.out, "Aucun projet pour l'instant.")
		return
	}
	out, err := renderYAML(p)
	if err != nil {
		s.notify(err)
		return
	}
	fmt.Fprintf(s.out, "%s\n%s", colorize(boldColor, p.Title()), out)
}

func (s *chatSession) snapshot() {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.Save(s.ctrl.Snapshot()); err != nil {
		slog.Warn("saving session snapshot failed", "error", err)
	}
}

// notify prints a user-facing message for err, one per failure kind.
func (s *chatSession) notify(err error) {
	var msg string
	switch {
	case errors.Is(err, planner.ErrAuthRequired):
		msg = "Créez un compte ou connectez-vous (/login <identifiant>) pour continuer."
	case errors.Is(err, planner.ErrEmptyProject):
		msg = "Votre projet est encore vide, décrivez d'abord votre mariage."
	case errors.Is(err, planner.ErrBusy):
		msg = "Un message est déjà en cours de traitement."
	case errors.Is(err, gateway.ErrRateLimited):
		msg = "Trop de demandes pour le moment, réessayez dans quelques instants."
	case errors.Is(err, gateway.ErrQuotaExceeded):
		msg = "Le service IA n'a plus de crédits disponibles."
	case errors.Is(err, context.Canceled):
		msg = "Demande annulée."
	default:
		msg = "Une erreur est survenue : " + err.Error()
	}
	fmt.Fprintln(s.out, colorize(errorColor, msg))
}
