// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package embedding

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// tokenize lower-cases text and returns runs of letters, digits and
// underscores that are at least two characters long and not stop words.
func tokenize(text string) []string {
	return tokens(text, false)
}

func tokens(text string, keepStop bool) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) < 2 {
			continue
		}
		if _, stop := stopWords[f]; stop && !keepStop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// analyze returns every n-gram of length 1..ngramMax over the tokens of text.
func analyze(text string, ngramMax int) []string {
	return analyzeWith(text, ngramMax, false)
}

func analyzeWith(text string, ngramMax int, keepStop bool) []string {
	toks := tokens(text, keepStop)
	if ngramMax <= 1 {
		return toks
	}
	terms := make([]string, 0, len(toks)*ngramMax)
	terms = append(terms, toks...)
	for n := 2; n <= ngramMax; n++ {
		for i := 0; i+n <= len(toks); i++ {
			terms = append(terms, strings.Join(toks[i:i+n], " "))
		}
	}
	return terms
}

// stopWords is the common English stop-word list used by most TF-IDF tooling.
var stopWords = func() map[string]struct{} {
	words := strings.Fields(`
a about above across after afterwards again against all almost alone along
already also although always am among amongst amoungst amount an and another
any anyhow anyone anything anyway anywhere are around as at back be became
because become becomes becoming been before beforehand behind being below
beside besides between beyond bill both bottom but by call can cannot cant co
con could couldnt cry de describe detail do done down due during each eg eight
either eleven else elsewhere empty enough etc even ever every everyone
everything everywhere except few fifteen fifty fill find fire first five for
former formerly forty found four from front full further get give go had has
hasnt have he hence her here hereafter hereby herein hereupon hers herself him
himself his how however hundred i ie if in inc indeed interest into is it its
itself keep last latter latterly least less ltd made many may me meanwhile
might mill mine more moreover most mostly move much must my myself name namely
neither never nevertheless next nine no nobody none noone nor not nothing now
nowhere of off often on once one only onto or other others otherwise our ours
ourselves out over own part per perhaps please put rather re same see seem
seemed seeming seems serious several she should show side since sincere six
sixty so some somehow someone something sometime sometimes somewhere still
such system take ten than that the their them themselves then thence there
thereafter thereby therefore therein thereupon these they thick thin third
this those though three through throughout thru thus to together too top
toward towards twelve twenty two un under until up upon us very via was we
well were what whatever when whence whenever where whereafter whereas whereby
wherein whereupon wherever whether which while whither who whoever whole whom
whose why will with within without would yet you your yours yourself
yourselves`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
