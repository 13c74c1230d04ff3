package constants

// Tagline is printed in the run banner.
const Tagline = "backdated commit history, one entry at a time"

// Preset names accepted by --preset.
const (
	PresetDaily  = "daily"
	PresetWeekly = "weekly"
)

// DailyFiles is the catalog used by the daily preset.
var DailyFiles = []string{
	"src/App.vue",
	"src/main.js",
	"src/components/CustomizationPanel.vue",
	"src/components/FabricSelector.vue",
	"src/components/ColorPicker.vue",
	"src/components/Preview3D.vue",
	"src/components/BlouseEditor.vue",
	"src/components/PatternOverlay.vue",
	"src/styles/main.css",
	"src/utils/helpers.js",
	"src/utils/fabricData.js",
	"src/data/patterns.json",
	"src/data/fabrics.json",
	"src/data/colors.json",
	"public/index.html",
	"public/manifest.json",
	"package.json",
	"vite.config.ts",
	"tailwind.config.js",
	"tsconfig.json",
	"README.md",
}

// WeeklyFiles is the catalog used by the weekly preset.
var WeeklyFiles = []string{
	"src/App.tsx",
	"src/main.tsx",
	"src/index.css",
	"src/components/BlouseSelection.tsx",
	"src/components/ColorSelection.tsx",
	"src/components/FabricSelector.tsx",
	"src/components/MaterialSelection.tsx",
	"src/data/sareeData.ts",
	"package.json",
	"vite.config.ts",
	"tailwind.config.js",
	"README.md",
	"index.html",
}

// DailyMessages is the message corpus of the daily preset.
var DailyMessages = []string{
	"feat: added 3D saree preview functionality",
	"feat: implemented fabric texture selection",
	"feat: added color picker for saree customization",
	"feat: implemented blouse design editor",
	"feat: added drape style selection",
	"feat: created pattern overlay system",
	"feat: added border design customization",
	"feat: implemented save design feature",
	"feat: added share design functionality",
	"feat: created design gallery view",

	"fix: resolved 3D model loading issue",
	"fix: corrected color picker accuracy",
	"fix: fixed fabric texture rendering",
	"fix: resolved mobile touch events",
	"fix: corrected zoom functionality",
	"fix: fixed design save/load bug",
	"fix: resolved image export quality",
	"fix: corrected measurement calculations",
	"fix: fixed border alignment issue",
	"fix: resolved pattern scaling problem",

	"refactor: improved CustomizationPanel component",
	"refactor: optimized 3D preview performance",
	"refactor: enhanced fabric selection UI",
	"refactor: improved color palette system",
	"refactor: optimized image processing",
	"refactor: enhanced responsive design",
	"refactor: improved state management",
	"refactor: optimized bundle size",

	"style: updated color scheme for better accessibility",
	"style: improved button designs and hover effects",
	"style: enhanced fabric preview cards",
	"style: updated typography scale",
	"style: improved mobile navigation",
	"style: added loading animations",
	"style: enhanced tooltip designs",
	"style: updated icon system",

	"content: added new silk fabric options",
	"content: updated cotton fabric catalog",
	"content: added festival collection patterns",
	"content: updated border design library",
	"content: added new blouse styles",
	"content: updated drape tutorials",
	"content: added customer design examples",
	"content: updated fabric care instructions",

	"perf: optimized 3D model loading",
	"perf: implemented image lazy loading",
	"perf: reduced initial bundle size",
	"perf: optimized fabric texture loading",
	"perf: improved color rendering speed",
	"perf: implemented virtual scrolling for patterns",

	"chore: updated Vite configuration",
	"chore: upgraded Tailwind CSS",
	"chore: updated TypeScript config",
	"chore: added new ESLint rules",
	"chore: updated package dependencies",
	"chore: improved build process",
	"chore: added PWA capabilities",
	"chore: updated SEO meta tags",
}

// WeeklyMessages is the message corpus of the weekly preset.
var WeeklyMessages = []string{
	"feat: enhanced saree customization features",
	"fix: resolved 3D preview rendering issues",
	"style: improved UI components and layouts",
	"docs: updated documentation and user guides",
	"refactor: optimized component structure",
	"perf: improved application performance",
	"content: added new fabric patterns",
	"chore: updated dependencies and configurations",
	"test: added unit tests for core functionality",
	"security: implemented security improvements",
	"feat: added blouse design customization",
	"fix: corrected color picker functionality",
	"style: enhanced mobile responsive design",
	"docs: added saree draping tutorials",
	"feat: implemented save design feature",
	"fix: resolved image export issues",
}

// Directories created before the first entry of a run.
var (
	DailyFallbackDir  = "src/utils/updates"
	WeeklyFallbackDir = "src/utils/weekly_updates"
)
