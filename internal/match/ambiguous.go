package match

// defaultAmbiguousAliases lists bare nicknames shared by multiple clubs.
// Such an alias only matches an entity when that entity's full name also
// appears literally in the title. Kept as data so new ambiguous aliases are
// configuration changes, not code changes.
var defaultAmbiguousAliases = []string{
	"united",
	"city",
	"rovers",
	"wanderers",
	"albion",
	"athletic",
}
