package platform

import "strconv"

// Tool names shared by every platform.
const (
	ToolYkman         = "ykman"
	ToolYkpersonalize = "ykpersonalize"
	ToolYkchalresp    = "ykchalresp"
)

// DefaultErasePasses is the number of random overwrite passes before the
// final zero pass.
const DefaultErasePasses = 10

// Profile is the command set for one platform.
type Profile struct {
	Platform    Platform
	DisplayName string
	// Tools maps a logical tool name to the binary invoked for it.
	Tools map[string]string
	// RequiredTools are the binaries that must resolve on PATH.
	RequiredTools []string
	// PackageManagerPaths are absolute paths whose presence identifies the
	// platform's package manager.
	PackageManagerPaths []string
	// Bootstrap installs the package manager itself when BootstrapCheck is
	// not on PATH.
	Bootstrap      *InstallStep
	BootstrapCheck string
	InstallSteps   []InstallStep
	Erase          EraseCommand
}

// InstallStep is one command in an installation sequence.
type InstallStep struct {
	// Description is logged before the step runs.
	Description string
	Name        string
	Args        []string
	// FailureMessage is reported when the step exits non-zero.
	FailureMessage string
	// Optional steps only warn on failure.
	Optional bool
}

// EraseCommand describes the secure deletion tool.
type EraseCommand struct {
	Tool   string
	Passes int
}

// Args returns the erase arguments for path: verbose, force, final zero
// pass, Passes random passes, unlink.
func (e EraseCommand) Args(path string) []string {
	passes := e.Passes
	if passes <= 0 {
		passes = DefaultErasePasses
	}
	return []string{"-v", "-f", "-z", "-n", strconv.Itoa(passes), "-u", path}
}

// Tool returns the binary configured for a logical tool name.
func (p Profile) Tool(name string) string {
	if bin, ok := p.Tools[name]; ok && bin != "" {
		return bin
	}
	return name
}

// DefaultProfile returns the built-in command set for p.
func DefaultProfile(p Platform) Profile {
	tools := map[string]string{
		ToolYkman:         ToolYkman,
		ToolYkpersonalize: ToolYkpersonalize,
		ToolYkchalresp:    ToolYkchalresp,
	}

	switch p {
	case MacOS:
		return Profile{
			Platform:       MacOS,
			DisplayName:    MacOS.String(),
			Tools:          tools,
			RequiredTools:  []string{ToolYkman, ToolYkpersonalize, ToolYkchalresp, "gshred"},
			BootstrapCheck: "brew",
			Bootstrap: &InstallStep{
				Description:    "Installing Homebrew",
				Name:           "/bin/bash",
				Args:           []string{"-c", `$(curl -fsSL https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh)`},
				FailureMessage: "Homebrew installation failed. Please install manually: https://brew.sh",
			},
			InstallSteps: []InstallStep{
				{
					Description:    "Updating Homebrew",
					Name:           "brew",
					Args:           []string{"update"},
					FailureMessage: "Homebrew update failed, continuing anyway",
					Optional:       true,
				},
				{
					Description:    "Installing ykpers",
					Name:           "brew",
					Args:           []string{"install", "ykpers"},
					FailureMessage: "Failed to install ykpers via Homebrew. Try manually: brew install ykpers",
				},
				{
					Description:    "Installing ykman (yubikey-manager)",
					Name:           "brew",
					Args:           []string{"install", "ykman"},
					FailureMessage: "Failed to install ykman via Homebrew. Try manually: brew install ykman",
				},
				{
					Description:    "Installing coreutils (for secure file deletion)",
					Name:           "brew",
					Args:           []string{"install", "coreutils"},
					FailureMessage: "Failed to install coreutils via Homebrew. Try manually: brew install coreutils",
				},
			},
			Erase: EraseCommand{Tool: "gshred", Passes: DefaultErasePasses},
		}
	case Debian:
		return Profile{
			Platform:             Debian,
			DisplayName:          Debian.String(),
			Tools:                tools,
			RequiredTools:        []string{ToolYkman, ToolYkpersonalize, ToolYkchalresp},
			PackageManagerPaths: []string{"/usr/bin/apt", "/usr/bin/apt-get"},
			InstallSteps: []InstallStep{
				{
					Description:    "Updating package lists",
					Name:           "sudo",
					Args:           []string{"apt-get", "update"},
					FailureMessage: "Failed to update apt cache. Check your sudo permissions.",
				},
				{
					Description:    "Installing packages",
					Name:           "sudo",
					Args:           []string{"apt-get", "install", "-y", "yubikey-manager", "yubikey-personalization"},
					FailureMessage: "Failed to install YubiKey tools via apt-get",
				},
			},
			Erase: EraseCommand{Tool: "shred", Passes: DefaultErasePasses},
		}
	default:
		return Profile{}
	}
}

// Overrides replaces tool binaries and erase settings in a profile. Empty
// values keep the defaults.
type Overrides struct {
	Ykman         string
	Ykpersonalize string
	Ykchalresp    string
	Erase         string
	ErasePasses   int
}

// Apply returns a copy of p with o applied. Required tools follow the
// renamed binaries.
func (p Profile) Apply(o Overrides) Profile {
	out := p
	out.Tools = make(map[string]string, len(p.Tools))
	for k, v := range p.Tools {
		out.Tools[k] = v
	}

	rename := map[string]string{}
	set := func(logical, bin string) {
		if bin == "" {
			return
		}
		rename[out.Tool(logical)] = bin
		out.Tools[logical] = bin
	}
	set(ToolYkman, o.Ykman)
	set(ToolYkpersonalize, o.Ykpersonalize)
	set(ToolYkchalresp, o.Ykchalresp)
	if o.Erase != "" {
		rename[out.Erase.Tool] = o.Erase
		out.Erase.Tool = o.Erase
	}
	if o.ErasePasses > 0 {
		out.Erase.Passes = o.ErasePasses
	}

	out.RequiredTools = make([]string, 0, len(p.RequiredTools))
	for _, tool := range p.RequiredTools {
		if renamed, ok := rename[tool]; ok {
			tool = renamed
		}
		out.RequiredTools = append(out.RequiredTools, tool)
	}
	return out
}
