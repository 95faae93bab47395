package relay

// DefaultPipePlatforms are the platforms whose best representation usually
// needs server-side audio/video merging.
var DefaultPipePlatforms = []PlatformTag{YouTube}

// ToolchainConfig describes how to run the external media toolchain.
type ToolchainConfig struct {
	Executable string
	Format     string
	UserAgent  string
}

// Selector picks a relay strategy per platform.
//
//	youtube                     -> ProcessPipe
//	instagram, facebook, twitter,
//	tiktok, pinterest, linkedin,
//	snapchat, reddit, twitch,
//	generic                     -> ProxyFetch
//
// The pipe set can be changed with NewSelector.
type Selector struct {
	pipe              map[PlatformTag]bool
	toolchain         ToolchainConfig
	maxFilenameLength int
}

// NewSelector returns a Selector that pipes the given platforms through the
// toolchain; nil pipePlatforms means DefaultPipePlatforms.
func NewSelector(toolchain ToolchainConfig, pipePlatforms []PlatformTag, maxFilenameLength int) *Selector {
	if pipePlatforms == nil {
		pipePlatforms = DefaultPipePlatforms
	}
	if toolchain.Executable == "" {
		toolchain.Executable = "yt-dlp"
	}
	pipe := make(map[PlatformTag]bool, len(pipePlatforms))
	for _, tag := range pipePlatforms {
		pipe[tag] = true
	}
	return &Selector{pipe: pipe, toolchain: toolchain, maxFilenameLength: maxFilenameLength}
}

// StrategyFor returns the strategy used for tag.
func (s *Selector) StrategyFor(tag PlatformTag) Strategy {
	if s.pipe[tag] {
		return ProcessPipe
	}
	return ProxyFetch
}

// Select builds the RelayPlan for a resolved descriptor. It fails with
// ErrNoPlayableMedia when the chosen strategy has nothing to work with.
func (s *Selector) Select(tag PlatformTag, d MediaDescriptor) (RelayPlan, error) {
	plan := RelayPlan{
		Platform: tag,
		Strategy: s.StrategyFor(tag),
		Filename: AttachmentFilename(d.Title, s.maxFilenameLength),
	}

	switch plan.Strategy {
	case ProcessPipe:
		if d.SourceURL == "" {
			return RelayPlan{}, ErrNoPlayableMedia
		}
		plan.Invocation = s.invocation(d.SourceURL)
	default:
		if len(d.Candidates) == 0 || d.Candidates[0].URL == "" {
			return RelayPlan{}, ErrNoPlayableMedia
		}
		plan.Candidate = d.Candidates[0]
	}
	return plan, nil
}

// invocation makes the toolchain fetch sourceURL itself, merge into a single
// MP4 and write it to stdout.
func (s *Selector) invocation(sourceURL string) Invocation {
	args := []string{
		"--format", s.toolchain.Format,
		"--merge-output-format", "mp4",
		"--no-playlist",
		"--no-part",
		"--quiet",
		"--no-warnings",
	}
	if s.toolchain.Format == "" {
		args = args[2:]
	}
	if s.toolchain.UserAgent != "" {
		args = append(args, "--add-headers", "User-Agent:"+s.toolchain.UserAgent)
	}
	args = append(args, "--output", "-", "--", sourceURL)
	return Invocation{Executable: s.toolchain.Executable, Args: args}
}
