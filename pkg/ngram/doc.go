/*
Package ngram provides a character-level sliding-window text generator.

A Model learns, for every window of a fixed number of bytes seen in a training
corpus, how often each byte follows that window. The counts live in a
FrequencyTable per window, which is normalized into a probability and
cumulative probability distribution once training finishes. Generation then
extends a seed string one byte at a time by sampling from the table of the
trailing window, stopping at the requested length or at a window the corpus
never contained.

	m, err := ngram.NewModel(3, ngram.WithSeed(42))
	if err != nil {
		return err
	}
	if err := m.Train(file); err != nil {
		return err
	}
	fmt.Println(m.Generate("the", 200))
*/
package ngram
