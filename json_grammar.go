package ebnf

import (
	"sync"

	"github.com/coregx/ebnf/grammar"
)

// JSONGrammarText is the built-in JSON grammar in the EBNF dialect.
const JSONGrammarText = `root ::= ws value ws
value ::= object | array | string | number | "true" | "false" | "null"
object ::= "{" ws (member (ws "," ws member)*)? ws "}"
member ::= string ws ":" ws value
array ::= "[" ws (value (ws "," ws value)*)? ws "]"
string ::= "\"" char* "\""
char ::= [^"\\\x00-\x1F] | "\\" escape
escape ::= ["\\/bfnrt] | "u" hex hex hex hex
hex ::= [0-9a-fA-F]
number ::= int frac? exp?
int ::= "-"? ("0" | [1-9] [0-9]*)
frac ::= "." [0-9]+
exp ::= [eE] [+\-]? [0-9]+
ws ::= [ \t\n\r]*
`

var jsonGrammar = sync.OnceValues(func() (*grammar.Grammar, error) {
	return Compile(JSONGrammarText)
})

// JSONGrammar returns the compiled built-in JSON grammar. Compilation happens
// on first use; the same frozen grammar is returned afterwards.
func JSONGrammar() (*grammar.Grammar, error) {
	return jsonGrammar()
}
